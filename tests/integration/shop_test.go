//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// TestShoppingFlow walks the full customer journey: register, fill the cart,
// check out, pay, and watch the order move through fulfilment.
func TestShoppingFlow(t *testing.T) {
	token := registerCustomer(t, "shopper@liana.test", "shopper-pw-1")

	// Two paracetamol, one ORS.
	for range 2 {
		resp := do(t, http.MethodPost, "/api/cart/items", token, map[string]string{
			"medicineId": "paracetamol-500",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add to cart: expected 200, got %d", resp.StatusCode)
		}
	}
	resp := do(t, http.MethodPost, "/api/cart/items", token, map[string]string{
		"medicineId": "ors-sachets",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, "/api/cart", token, nil)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 cart lines, got %d", len(cart.Lines))
	}
	if cart.TotalQuantity != 3 {
		t.Fatalf("expected total quantity 3, got %d", cart.TotalQuantity)
	}

	resp = do(t, http.MethodPost, "/api/billing/checkout", token, map[string]string{
		"deliveryAddress": "12 Rosebank Ave, Lagos",
		"billingAddress":  "12 Rosebank Ave, Lagos",
		"paymentMethod":   "Card",
	})
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if order.Status != "pending" {
		t.Errorf("order status: got %q, want %q", order.Status, "pending")
	}
	if order.PaymentStatus != "unpaid" {
		t.Errorf("payment status: got %q, want %q", order.PaymentStatus, "unpaid")
	}
	if order.Total != cart.TotalPrice {
		t.Errorf("order total: got %v, want %v", order.Total, cart.TotalPrice)
	}

	// Checkout empties the cart.
	resp = do(t, http.MethodGet, "/api/cart", token, nil)
	emptied := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(emptied.Lines) != 0 {
		t.Errorf("expected empty cart after checkout, got %d lines", len(emptied.Lines))
	}

	resp = do(t, http.MethodPut, "/api/billing/"+order.ID+"/pay", token, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("pay: expected 200, got %d", resp.StatusCode)
	}
	paid := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if paid.PaymentStatus != "paid" {
		t.Errorf("payment status after pay: got %q, want %q", paid.PaymentStatus, "paid")
	}

	// Paying twice conflicts.
	resp = do(t, http.MethodPut, "/api/billing/"+order.ID+"/pay", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second pay: expected 409, got %d", resp.StatusCode)
	}

	// Staff advance the order; the admin acts as staff here.
	adminToken := login(t, adminEmail, adminPassword)
	resp = do(t, http.MethodPut, "/api/billing/"+order.ID+"/status", adminToken, map[string]string{
		"status": "shipped",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ship: expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, "/api/billing/"+order.ID, token, nil)
	shipped := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if shipped.Status != "shipped" {
		t.Errorf("order status after ship: got %q, want %q", shipped.Status, "shipped")
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	token := registerCustomer(t, "empty-cart@liana.test", "empty-pw-1")

	resp := do(t, http.MethodPost, "/api/billing/checkout", token, map[string]string{
		"deliveryAddress": "1 Test St",
		"billingAddress":  "1 Test St",
		"paymentMethod":   "Card",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGuestCart_NoAuthRequired(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/cart/items", "", map[string]string{
		"medicineId": "cetirizine-10",
	})
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("guest add: expected 200, got %d", resp.StatusCode)
	}
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	if len(cart.Lines) == 0 {
		t.Fatal("expected guest cart to hold the added line")
	}
	if cart.Lines[0].ItemID != "cetirizine-10" {
		t.Errorf("line item: got %q, want %q", cart.Lines[0].ItemID, "cetirizine-10")
	}
}

func TestOrders_HiddenFromOtherCustomers(t *testing.T) {
	ownerToken := registerCustomer(t, "order-owner@liana.test", "owner-pw-1")
	otherToken := registerCustomer(t, "order-other@liana.test", "other-pw-1")

	resp := do(t, http.MethodPost, "/api/cart/items", ownerToken, map[string]string{
		"medicineId": "vitamin-d3-1000",
	})
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/api/billing/checkout", ownerToken, map[string]string{
		"deliveryAddress": "2 Test St",
		"billingAddress":  "2 Test St",
		"paymentMethod":   "Mpesa",
	})
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	resp = do(t, http.MethodGet, "/api/billing/"+order.ID, otherToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for another customer's order, got %d", resp.StatusCode)
	}
}

func TestNotifications_OrderEvents(t *testing.T) {
	token := registerCustomer(t, "notified@liana.test", "notified-pw-1")

	resp := do(t, http.MethodPost, "/api/cart/items", token, map[string]string{
		"medicineId": "omeprazole-20",
	})
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/api/billing/checkout", token, map[string]string{
		"deliveryAddress": "3 Test St",
		"billingAddress":  "3 Test St",
		"paymentMethod":   "Card",
	})
	resp.Body.Close()

	resp = do(t, http.MethodGet, "/api/notifications", token, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("list notifications: expected 200, got %d", resp.StatusCode)
	}
	notifications := decodeJSON[[]struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		Read    bool   `json:"read"`
	}](t, resp)
	resp.Body.Close()

	if len(notifications) == 0 {
		t.Fatal("expected a notification after checkout")
	}
	if notifications[0].Read {
		t.Error("fresh notification should be unread")
	}

	resp = do(t, http.MethodPut, "/api/notifications/"+notifications[0].ID+"/read", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("mark read: expected 204, got %d", resp.StatusCode)
	}
}
