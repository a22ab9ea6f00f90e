//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var numberPattern = regexp.MustCompile(`^PO-[0-9A-F]{10}$`)

func glovesOrder() orderRequest {
	return orderRequest{
		Kind:         "purchase",
		Counterparty: "Integration Supplies",
		ShippingFee:  "25",
		Lines: []lineRequest{
			{ProductID: "GLV-NIT-L", ProductName: "Nitrile gloves (L)", Quantity: 60, UnitPrice: "10.00"},
		},
	}
}

func createOrder(t *testing.T, req orderRequest) orderResponse {
	t.Helper()

	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[orderResponse](t, resp)
}

func TestCreateOrder_PurchaseBestOffer(t *testing.T) {
	o := createOrder(t, glovesOrder())

	if !numberPattern.MatchString(o.Number) {
		t.Errorf("number: got %q, want PO-XXXXXXXXXX", o.Number)
	}
	// 60 units qualify for BULK50 (2.5%), not BULK100.
	if o.OfferCode != "BULK50" {
		t.Errorf("offerCode: got %q, want BULK50", o.OfferCode)
	}
	if !o.OfferAuto {
		t.Error("offerAuto: got false, want true for a selected offer")
	}

	want := map[string]string{
		"subtotal":           "600.00",
		"offerDiscount":      "15.00",
		"discountedSubtotal": "585.00",
		"tax":                "105.30",
		"shipping":           "25.00",
		"total":              "715.30",
	}
	got := map[string]string{
		"subtotal":           o.Totals.Subtotal.String(),
		"offerDiscount":      o.Totals.OfferDiscount.String(),
		"discountedSubtotal": o.Totals.DiscountedSubtotal.String(),
		"tax":                o.Totals.Tax.String(),
		"shipping":           o.Totals.Shipping.String(),
		"total":              o.Totals.Total.String(),
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s: got %s, want %s", k, got[k], w)
		}
	}

	if len(o.Totals.Taxes) != 1 || o.Totals.Taxes[0].Name != "GST" {
		t.Errorf("taxes: got %+v, want a single GST component", o.Totals.Taxes)
	}
	if o.FulfillmentStatus != "Pending" {
		t.Errorf("fulfillmentStatus: got %q, want Pending", o.FulfillmentStatus)
	}
	if len(o.Lines) != 1 || o.Lines[0].Status != "pending" || o.Lines[0].Counted {
		t.Errorf("lines: got %+v, want one uncounted pending line", o.Lines)
	}
}

func TestCreateOrder_SalesSplitTaxes(t *testing.T) {
	o := createOrder(t, orderRequest{
		Kind:         "sales",
		Counterparty: "Riverside Clinic",
		Lines: []lineRequest{
			{ProductID: "PCM-500", ProductName: "Paracetamol 500 mg", Quantity: 10, UnitPrice: "50"},
		},
	})

	if o.OfferCode != "" {
		t.Errorf("offerCode: got %q, want none", o.OfferCode)
	}
	if len(o.Totals.Taxes) != 2 {
		t.Fatalf("taxes: got %d components, want 2", len(o.Totals.Taxes))
	}
	for _, tax := range o.Totals.Taxes {
		if tax.Amount.String() != "45.00" {
			t.Errorf("%s: got %s, want 45.00", tax.Name, tax.Amount)
		}
	}
	if o.Totals.Total.String() != "590.00" {
		t.Errorf("total: got %s, want 590.00", o.Totals.Total)
	}
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    orderRequest
		status int
		field  string
	}{
		{
			name:   "empty lines",
			req:    orderRequest{Kind: "purchase", Counterparty: "X", Lines: []lineRequest{}},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown kind",
			req: orderRequest{Kind: "refund", Counterparty: "X", Lines: []lineRequest{
				{ProductID: "A", Quantity: 1, UnitPrice: "1"},
			}},
			status: http.StatusBadRequest,
		},
		{
			name: "blank counterparty",
			req: orderRequest{Kind: "purchase", Counterparty: "  ", Lines: []lineRequest{
				{ProductID: "A", Quantity: 1, UnitPrice: "1"},
			}},
			status: http.StatusBadRequest,
		},
		{
			name: "discount over 100",
			req: orderRequest{Kind: "purchase", Counterparty: "X", Lines: []lineRequest{
				{ProductID: "A", Quantity: 1, UnitPrice: "1"},
				{ProductID: "B", Quantity: 1, UnitPrice: "1", DiscountPercent: "150"},
			}},
			status: http.StatusUnprocessableEntity,
			field:  "discountPercent",
		},
		{
			name: "unknown offer",
			req: orderRequest{Kind: "purchase", Counterparty: "X", OfferCode: "NOPE", Lines: []lineRequest{
				{ProductID: "A", Quantity: 1, UnitPrice: "1"},
			}},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "offer on sales order",
			req: orderRequest{Kind: "sales", Counterparty: "X", OfferCode: "BULK50", Lines: []lineRequest{
				{ProductID: "A", Quantity: 1, UnitPrice: "1"},
			}},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doPost(t, "/api/orders", tt.req)
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			body := decodeJSON[errorResponse](t, resp)
			if body.Error.Code != tt.status {
				t.Errorf("error code: got %d, want %d", body.Error.Code, tt.status)
			}
			if body.Error.Field != tt.field {
				t.Errorf("error field: got %q, want %q", body.Error.Field, tt.field)
			}
		})
	}
}

func TestOrderLifecycle(t *testing.T) {
	created := createOrder(t, glovesOrder())

	resp := doGet(t, "/api/orders/"+created.ID)
	got := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if got.Number != created.Number || got.Totals.Total != created.Totals.Total {
		t.Errorf("get: got %s/%s, want %s/%s", got.Number, got.Totals.Total, created.Number, created.Totals.Total)
	}

	resp = do(t, http.MethodPatch, "/api/orders/"+created.ID, map[string]any{"shippingFee": "0"})
	patched := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", resp.StatusCode)
	}
	if patched.Totals.Total.String() != "690.30" {
		t.Errorf("patched total: got %s, want 690.30", patched.Totals.Total)
	}

	resp = doPost(t, "/api/orders/"+created.ID+"/receipts", map[string]any{
		"counts": []countRequest{{Line: 0, Received: 0, Damaged: 10, Missing: 5}},
	})
	received := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("receive: expected 200, got %d", resp.StatusCode)
	}
	if received.Lines[0].Status != "damaged" {
		t.Errorf("line status: got %q, want damaged", received.Lines[0].Status)
	}
	if received.FulfillmentStatus != "Partially Fulfilled" {
		t.Errorf("fulfillmentStatus: got %q, want Partially Fulfilled", received.FulfillmentStatus)
	}

	resp = doPost(t, "/api/orders/"+created.ID+"/receipts", map[string]any{
		"counts": []countRequest{{Line: 0, Received: 60}},
	})
	received = decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if received.FulfillmentStatus != "Fulfilled" {
		t.Errorf("fulfillmentStatus: got %q, want Fulfilled", received.FulfillmentStatus)
	}

	resp = do(t, http.MethodDelete, "/api/orders/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}

	resp = doGet(t, "/api/orders/"+created.ID)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestReceiveOrder_UnknownLine(t *testing.T) {
	created := createOrder(t, glovesOrder())

	resp := doPost(t, "/api/orders/"+created.ID+"/receipts", map[string]any{
		"counts": []countRequest{{Line: 3, Received: 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Line == nil || *body.Error.Line != 3 {
		t.Errorf("error line: got %v, want 3", body.Error.Line)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Message != "order not found" {
		t.Errorf("message: got %q, want %q", body.Error.Message, "order not found")
	}
}
