package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// codecVersion tags the persisted payload. Decoding discards any payload
// carrying an unknown version instead of guessing at its shape.
const codecVersion = 1

var errUnknownVersion = errors.New("unknown cart payload version")

// encodeLines serializes lines into the versioned envelope
// {"v":1,"lines":[{"itemId":...,"name":...,"unitPrice":"...","imageRef":...,"quantity":...}]}.
// Prices travel as strings to keep decimal exactness.
func encodeLines(lines []Line) string {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("v")
	e.Int(codecVersion)
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.FieldStart("itemId")
		e.Str(l.ItemID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("unitPrice")
		e.Str(l.UnitPrice.String())
		if l.ImageRef != "" {
			e.FieldStart("imageRef")
			e.Str(l.ImageRef)
		}
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.String()
}

// decodeLines parses a persisted payload. Any structural problem (bad JSON,
// wrong version, a line without an id, a non-positive quantity) is an error;
// the caller treats every error as "no stored cart".
func decodeLines(payload string) ([]Line, error) {
	var (
		version int
		lines   []Line
	)

	d := jx.DecodeStr(payload)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "v":
			v, err := d.Int()
			if err != nil {
				return err
			}
			version = v
			return nil
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				lines = append(lines, l)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart payload")
	}
	if version != codecVersion {
		return nil, errUnknownVersion
	}
	return lines, nil
}

func decodeLine(d *jx.Decoder) (Line, error) {
	var l Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "itemId":
			v, err := d.Str()
			l.ItemID = v
			return err
		case "name":
			v, err := d.Str()
			l.Name = v
			return err
		case "unitPrice":
			v, err := d.Str()
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(v)
			if err != nil {
				return errors.Wrap(err, "parse unit price")
			}
			l.UnitPrice = price
			return nil
		case "imageRef":
			v, err := d.Str()
			l.ImageRef = v
			return err
		case "quantity":
			v, err := d.Int()
			l.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Line{}, err
	}
	if l.ItemID == "" {
		return Line{}, errors.New("cart line missing item id")
	}
	if l.Quantity < 1 {
		return Line{}, errors.Errorf("cart line %s has quantity %d", l.ItemID, l.Quantity)
	}
	return l, nil
}
