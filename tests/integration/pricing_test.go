//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestComputeQuote(t *testing.T) {
	resp := doPost(t, "/api/pricing/quote", map[string]any{
		"lines": []map[string]any{
			{"quantity": 3, "unitPrice": "12.50"},
			{"quantity": 2, "unitPrice": "10", "discountPercent": "25"},
		},
		"taxRatePercent": "18",
		"shippingFee":    "5",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// 37.50 + 15.00 = 52.50; tax 9.45; total 66.95.
	body := decodeJSON[totalsResponse](t, resp)
	if body.Subtotal.String() != "52.50" {
		t.Errorf("subtotal: got %s, want 52.50", body.Subtotal)
	}
	if body.Tax.String() != "9.45" {
		t.Errorf("tax: got %s, want 9.45", body.Tax)
	}
	if body.Total.String() != "66.95" {
		t.Errorf("total: got %s, want 66.95", body.Total)
	}
}

func TestComputeQuote_Invalid(t *testing.T) {
	resp := doPost(t, "/api/pricing/quote", map[string]any{
		"lines":          []map[string]any{{"quantity": 1, "unitPrice": "-1"}},
		"taxRatePercent": "18",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Field != "unitPrice" {
		t.Errorf("field: got %q, want unitPrice", body.Error.Field)
	}
}

func TestResolveFulfillment(t *testing.T) {
	resp := doPost(t, "/api/fulfillment/resolve", map[string]any{
		"lines": []map[string]any{
			{"orderedQuantity": 10, "receivedQuantity": 10},
			{"orderedQuantity": 5, "receivedQuantity": 3},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[struct {
		Lines  []string `json:"lines"`
		Status string   `json:"status"`
	}](t, resp)
	if len(body.Lines) != 2 || body.Lines[0] != "fulfilled" || body.Lines[1] != "partial" {
		t.Errorf("lines: got %v, want [fulfilled partial]", body.Lines)
	}
	if body.Status != "Partially Fulfilled" {
		t.Errorf("status: got %q, want Partially Fulfilled", body.Status)
	}
}
