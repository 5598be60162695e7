package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nft_sale/api"
	"nft_sale/internal/sale"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func initRouterForTests(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	logger := zaptest.NewLogger(t)
	saleService := sale.NewService(sale.NewLocalStorage(), logger)
	api.InitRoutesWithService(router, saleService, logger)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, capability string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if capability != "" {
		req.Header.Set("X-Capability", capability)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type capabilityResponse struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type instantiateResponse struct {
	Sale struct {
		ID                  string          `json:"id"`
		AcceptedPaymentKind string          `json:"accepted_payment_kind"`
		UnitPrice           decimal.Decimal `json:"unit_price"`
		SaleOpen            bool            `json:"sale_open"`
	} `json:"sale"`
	OwnerCapability capabilityResponse `json:"owner_capability"`
	AdminCapability capabilityResponse `json:"admin_capability"`
}

func testItemsPayload(n int) map[string]any {
	items := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]string{
			"id":   fmt.Sprintf("gumball-%03d", i),
			"kind": "gumball",
		})
	}
	return map[string]any{"items": items}
}

// TestSaleHappyPath_FullFlow drives the whole escrow lifecycle over HTTP:
// instantiate, stock, open, buy, inspect, withdraw.
func TestSaleHappyPath_FullFlow(t *testing.T) {
	router := initRouterForTests(t)

	var created instantiateResponse

	//1: POST /sales
	t.Run("POST_Instantiate", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/sales", "", map[string]any{
			"item_kind":     map[string]any{"id": "gumball", "fungible": false},
			"payment_kind":  map[string]any{"id": "xrd", "fungible": true},
			"initial_price": "10",
		})

		assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP 201 Created for sale instantiation")

		err := json.Unmarshal(w.Body.Bytes(), &created)
		assert.NoError(t, err, "Expected no error unmarshalling instantiate response")
		assert.NotEmpty(t, created.Sale.ID, "Expected sale ID to be generated")
		assert.Equal(t, "xrd", created.Sale.AcceptedPaymentKind)
		assert.True(t, created.Sale.UnitPrice.Equal(decimal.RequireFromString("10")))
		assert.False(t, created.Sale.SaleOpen, "Expected sale to start closed")
		assert.Equal(t, "owner", created.OwnerCapability.Role)
		assert.Equal(t, "admin", created.AdminCapability.Role)
		assert.NotEmpty(t, created.OwnerCapability.Token, "Expected owner bearer token")
		assert.NotEmpty(t, created.AdminCapability.Token, "Expected admin bearer token")
	})

	if created.Sale.ID == "" {
		t.Fatal("Sale ID was not successfully generated in POST_Instantiate step.")
	}
	saleURL := "/sales/" + created.Sale.ID

	//2: buy before the sale starts is rejected
	t.Run("POST_BuyBeforeStart", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, saleURL+"/purchases", "", map[string]any{
			"payment": map[string]any{"kind": "xrd", "amount": "12"},
			"count":   1,
		})
		assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP 409 when buying before the sale starts")
	})

	//3: stock the vault and open the sale with the admin capability
	t.Run("POST_AddItemsAndStart", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, saleURL+"/items", created.AdminCapability.Token, testItemsPayload(5))
		assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 for item deposit")

		w = doJSON(t, router, http.MethodPost, saleURL+"/start", created.AdminCapability.Token, nil)
		assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 for sale start")
	})

	//4: a privileged call without a capability is rejected
	t.Run("POST_StartWithoutCapability", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, saleURL+"/start", "", nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "Expected HTTP 403 without a capability")
	})

	//5: buy one item with 12 xrd at price 10
	t.Run("POST_Buy", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, saleURL+"/purchases", "", map[string]any{
			"payment": map[string]any{"kind": "xrd", "amount": "12"},
			"count":   1,
		})
		assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 for successful purchase")

		var resp struct {
			Change struct {
				Kind   string          `json:"kind"`
				Amount decimal.Decimal `json:"amount"`
			} `json:"change"`
			Items []struct {
				ID   string `json:"id"`
				Kind string `json:"kind"`
			} `json:"items"`
		}
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		assert.NoError(t, err, "Expected no error unmarshalling purchase response")
		assert.Equal(t, "xrd", resp.Change.Kind)
		assert.True(t, resp.Change.Amount.Equal(decimal.RequireFromString("2")), "Expected change of 2, got %s", resp.Change.Amount)
		assert.Len(t, resp.Items, 1, "Expected exactly one purchased item")
		assert.Equal(t, "gumball", resp.Items[0].Kind)
	})

	//6: the public listing shows the hosted sale
	t.Run("GET_ListSales", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/sales", "", nil)
		assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 for the sale listing")

		var resp struct {
			Results []struct {
				ID             string `json:"id"`
				ItemKind       string `json:"item_kind"`
				SaleOpen       bool   `json:"sale_open"`
				ItemsRemaining int    `json:"items_remaining"`
			} `json:"results"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Results, 1, "Expected exactly one hosted sale")
		assert.Equal(t, created.Sale.ID, resp.Results[0].ID)
		assert.Equal(t, "gumball", resp.Results[0].ItemKind)
		assert.True(t, resp.Results[0].SaleOpen)
		assert.Equal(t, 4, resp.Results[0].ItemsRemaining, "Expected 4 items left after the purchase")
	})

	//7: public reads reflect the purchase
	t.Run("GET_SoldAndPrice", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, saleURL+"/sold", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var sold struct {
			Sold bool `json:"sold"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &sold))
		assert.True(t, sold.Sold, "Expected sale to be marked sold after a purchase")

		w = doJSON(t, router, http.MethodGet, saleURL+"/price", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var price struct {
			Kind   string          `json:"kind"`
			Amount decimal.Decimal `json:"amount"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &price))
		assert.Equal(t, "xrd", price.Kind)
		assert.True(t, price.Amount.Equal(decimal.RequireFromString("10")))
	})

	//8: admins cannot withdraw proceeds
	t.Run("POST_WithdrawAsAdminForbidden", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, saleURL+"/withdrawals", created.AdminCapability.Token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "Expected HTTP 403 for admin withdrawal attempt")
	})

	//9: the owner drains the payment vault
	t.Run("POST_WithdrawAsOwner", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, saleURL+"/withdrawals", created.OwnerCapability.Token, nil)
		assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 for owner withdrawal")

		var resp struct {
			Profits struct {
				Kind   string          `json:"kind"`
				Amount decimal.Decimal `json:"amount"`
			} `json:"profits"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "xrd", resp.Profits.Kind)
		assert.True(t, resp.Profits.Amount.Equal(decimal.RequireFromString("10")), "Expected to withdraw the banked 10 xrd")

		// A second withdrawal finds the vault empty.
		w = doJSON(t, router, http.MethodPost, saleURL+"/withdrawals", created.OwnerCapability.Token, nil)
		assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP 409 withdrawing from an empty vault")
	})
}

// TestAdminRecallFlow exercises minting a second admin capability and the
// owner recalling it.
func TestAdminRecallFlow(t *testing.T) {
	router := initRouterForTests(t)

	w := doJSON(t, router, http.MethodPost, "/sales", "", map[string]any{
		"item_kind":     map[string]any{"id": "gumball", "fungible": false},
		"payment_kind":  map[string]any{"id": "xrd", "fungible": true},
		"initial_price": "10",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var created instantiateResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	saleURL := "/sales/" + created.Sale.ID

	// Mint a second admin with the owner capability.
	w = doJSON(t, router, http.MethodPost, saleURL+"/admins", created.OwnerCapability.Token, nil)
	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP 201 for admin mint")

	var minted struct {
		AdminCapability capabilityResponse `json:"admin_capability"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &minted))
	assert.Equal(t, "admin", minted.AdminCapability.Role)

	// The new admin can open the sale.
	w = doJSON(t, router, http.MethodPost, saleURL+"/start", minted.AdminCapability.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// An admin cannot mint further admins.
	w = doJSON(t, router, http.MethodPost, saleURL+"/admins", minted.AdminCapability.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "Expected HTTP 403 for admin-minted admin")

	// The owner recalls the new admin; its token stops working.
	w = doJSON(t, router, http.MethodDelete, saleURL+"/admins/"+minted.AdminCapability.ID, created.OwnerCapability.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 for admin recall")

	w = doJSON(t, router, http.MethodPost, saleURL+"/end", minted.AdminCapability.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "Expected HTTP 403 for a recalled admin token")

	// The owner capability itself cannot be recalled.
	w = doJSON(t, router, http.MethodDelete, saleURL+"/admins/"+created.OwnerCapability.ID, created.OwnerCapability.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP 409 recalling the owner capability")
}

// TestInstantiateValidation covers the construction preconditions over HTTP.
func TestInstantiateValidation(t *testing.T) {
	router := initRouterForTests(t)

	w := doJSON(t, router, http.MethodPost, "/sales", "", map[string]any{
		"item_kind":     map[string]any{"id": "gumball", "fungible": false},
		"payment_kind":  map[string]any{"id": "punks", "fungible": false},
		"initial_price": "10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected HTTP 400 for non-fungible payment kind")

	w = doJSON(t, router, http.MethodPost, "/sales", "", map[string]any{
		"item_kind":     map[string]any{"id": "gumball", "fungible": false},
		"payment_kind":  map[string]any{"id": "xrd", "fungible": true},
		"initial_price": "-3",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected HTTP 400 for negative initial price")

	w = doJSON(t, router, http.MethodGet, "/sales/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Expected HTTP 404 for unknown sale")
}
