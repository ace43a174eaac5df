package order_api

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ms-storefront/internal/auth"
	"ms-storefront/internal/catalog"
	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/notify"
	"ms-storefront/internal/order"
	"ms-storefront/internal/order/db"
	rediswrap "ms-storefront/internal/order/redis"
	"ms-storefront/internal/qr"
	"ms-storefront/internal/sse"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testLinkSecret = []byte("link-secret")

type testEnv struct {
	router  http.Handler
	service *order.OrderService
	feed    *sse.OrderFeedEmitter
}

func setupTestEnv(t *testing.T, guard order.SubmitGuard) *testEnv {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	store := &db.DB{Bun: bunDB}
	require.NoError(t, store.CreateSchema(context.Background()))

	log := logger.NewDiscard()
	cat, err := catalog.Default("fc25")
	require.NoError(t, err)
	wa := notify.NewWhatsApp("https://wa.me/", "201234567890")
	dispatcher := notify.NewDispatcher(wa, nil, log, nil)

	svc := order.NewOrderService(order.NewBuilder(cat), order.NewValidator(order.PhoneRuleStrict), store, guard, kafka.NoopPublisher{}, dispatcher, log)
	feed := sse.NewOrderFeedEmitter()
	svc.Feed = feed

	h := NewHandler(svc, cat, wa, qr.NewGenerator(256), testLinkSecret, log)
	sseHandler := NewSSEHandler(log, feed)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
		r.Route("/admin", func(r chi.Router) {
			h.RegisterAdminRoutes(r, sseHandler)
		})
	})
	return &testEnv{router: r, service: svc, feed: feed}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

const validOrder = `{"platform":"ps5","accountType":"full","customerPhone":"01112223344","paymentMethod":"vodafone","paymentReference":"01112223344"}`

func placeOrder(t *testing.T, env *testEnv) models.PlaceOrderResponse {
	rec, body := doRequest(t, env.router, http.MethodPost, "/api/orders", validOrder)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res models.PlaceOrderResponse
	require.NoError(t, json.Unmarshal(body.Data, &res))
	return res
}

func TestGetCatalog(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec, body := doRequest(t, env.router, http.MethodGet, "/api/catalog", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var cat catalogResponse
	require.NoError(t, json.Unmarshal(body.Data, &cat))
	assert.Equal(t, "EA Sports FC 25", cat.Game)
	require.Len(t, cat.Platforms, 4)
}

func TestPlaceOrder(t *testing.T) {
	env := setupTestEnv(t, nil)

	res := placeOrder(t, env)
	assert.Equal(t, 100, res.Order.Price)
	assert.Equal(t, models.StatusPending, res.Order.Status)
	assert.Contains(t, res.WhatsAppURL, "https://wa.me/201234567890?text=")
	assert.False(t, res.TelegramQueued)
	require.NoError(t, auth.VerifyOrderToken(testLinkSecret, res.AccessToken, res.Order.OrderID))

	rec, body := doRequest(t, env.router, http.MethodGet, "/api/orders/"+res.Order.OrderID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var got models.PublicOrder
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Equal(t, models.NewPublicOrder(res.Order), got)
}

func TestGetOrder_HidesCustomerDetails(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec, body := doRequest(t, env.router, http.MethodPost, "/api/orders",
		`{"platform":"pc","accountType":"primary","customerPhone":"01112223344","paymentMethod":"vodafone","paymentReference":"01098765432","customerAddress":"12 Nile St","customerEmail":"buyer@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res models.PlaceOrderResponse
	require.NoError(t, json.Unmarshal(body.Data, &res))

	rec, body = doRequest(t, env.router, http.MethodGet, "/api/orders/"+res.Order.OrderID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	raw := string(body.Data)
	for _, secret := range []string{"01098765432", "12 Nile St", "01112223344", "buyer@example.com"} {
		assert.NotContains(t, raw, secret)
	}
	for _, field := range []string{"paymentReference", "customerAddress", "customerPhone", "customerEmail"} {
		assert.NotContains(t, raw, field)
	}
	assert.Contains(t, raw, `"price":45`)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec, body := doRequest(t, env.router, http.MethodPost, "/api/orders",
		`{"platform":"ps5","accountType":"full","customerPhone":"12345","paymentMethod":"vodafone","paymentReference":"01112223344"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, order.ReasonInvalidPhone, body.Error)

	rec, body = doRequest(t, env.router, http.MethodPost, "/api/orders",
		`{"platform":"switch","accountType":"full","customerPhone":"01112223344","paymentMethod":"vodafone","paymentReference":"01112223344"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, order.ReasonInvalidPrice, body.Error)

	rec, _ = doRequest(t, env.router, http.MethodPost, "/api/orders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doRequest(t, env.router, http.MethodGet, "/api/admin/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestPlaceOrder_DuplicateSubmission(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	env := setupTestEnv(t, rediswrap.NewGuard(client, 10*time.Second, logger.NewDiscard()))

	placeOrder(t, env)
	rec, body := doRequest(t, env.router, http.MethodPost, "/api/orders", validOrder)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, body.Success)

	mr.FastForward(11 * time.Second)
	placeOrder(t, env)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := setupTestEnv(t, nil)

	token, err := auth.IssueOrderToken(testLinkSecret, "ORD-0-0", time.Hour)
	require.NoError(t, err)

	for _, target := range []string{"/api/orders/ORD-0-0", "/api/orders/ORD-0-0/whatsapp?token=" + token, "/api/orders/ORD-0-0/whatsapp.png?token=" + token} {
		rec, body := doRequest(t, env.router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.False(t, body.Success, target)
	}

	rec, _ := doRequest(t, env.router, http.MethodGet, "/api/admin/orders/last", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWhatsAppLinkAndQR(t *testing.T) {
	env := setupTestEnv(t, nil)
	res := placeOrder(t, env)

	base := "/api/orders/" + res.Order.OrderID

	rec, body := doRequest(t, env.router, http.MethodGet, base+"/whatsapp?token="+res.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var link whatsAppLinkResponse
	require.NoError(t, json.Unmarshal(body.Data, &link))
	assert.Equal(t, res.WhatsAppURL, link.WhatsAppURL)

	rec, _ = doRequest(t, env.router, http.MethodGet, base+"/whatsapp.png?token="+res.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestWhatsAppLink_RequiresOrderToken(t *testing.T) {
	env := setupTestEnv(t, nil)
	res := placeOrder(t, env)
	base := "/api/orders/" + res.Order.OrderID

	otherOrder, err := auth.IssueOrderToken(testLinkSecret, "ORD-1-1", time.Hour)
	require.NoError(t, err)
	wrongKey, err := auth.IssueOrderToken([]byte("other-secret"), res.Order.OrderID, time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueOrderToken(testLinkSecret, res.Order.OrderID, -time.Minute)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", otherOrder, wrongKey, expired} {
		for _, suffix := range []string{"/whatsapp", "/whatsapp.png"} {
			rec, body := doRequest(t, env.router, http.MethodGet, base+suffix+"?token="+token, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code, suffix)
			assert.NotContains(t, body.Error, res.Order.CustomerPhone)
			assert.NotContains(t, rec.Body.String(), "wa.me")
		}
	}
}

func TestAdminRoutes_RejectWithoutVerifier(t *testing.T) {
	env := setupTestEnv(t, nil)
	placeOrder(t, env)

	h := NewHandler(env.service, nil, nil, nil, testLinkSecret, logger.NewDiscard())
	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.Middleware(nil, logger.NewDiscard()))
		h.RegisterAdminRoutes(r, nil)
	})

	for _, target := range []string{"/api/admin/orders", "/api/admin/orders/export.csv", "/api/admin/orders/last"} {
		rec, _ := doRequest(t, r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.NotContains(t, rec.Body.String(), "01112223344", target)
	}
	rec, _ := doRequest(t, r, http.MethodPut, "/api/admin/orders/ORD-1-1/status", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOrders(t *testing.T) {
	env := setupTestEnv(t, nil)
	res := placeOrder(t, env)
	id := res.Order.OrderID

	rec, body := doRequest(t, env.router, http.MethodGet, "/api/admin/orders/last", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var last models.Order
	require.NoError(t, json.Unmarshal(body.Data, &last))
	assert.Equal(t, id, last.OrderID)

	rec, body = doRequest(t, env.router, http.MethodPut, "/api/admin/orders/"+id+"/status", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	var updated models.Order
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, models.StatusDelivered, updated.Status)

	rec, _ = doRequest(t, env.router, http.MethodPut, "/api/admin/orders/"+id+"/status", `{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, env.router, http.MethodPut, "/api/admin/orders/ORD-0-0/status", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = doRequest(t, env.router, http.MethodGet, "/api/admin/orders/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var stats models.OrderStats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, models.OrderStats{Total: 1, Delivered: 1, TotalRevenue: 100}, stats)

	rec, _ = doRequest(t, env.router, http.MethodGet, "/api/admin/orders/export.csv", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "orderId,gameName,platform,accountType,price,customerPhone,orderTime,status", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], id+",EA Sports FC 25,ps5,full,100,01112223344,"))
	assert.True(t, strings.HasSuffix(lines[1], ",delivered"))
}

func TestOrderFeedStream(t *testing.T) {
	env := setupTestEnv(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/admin/orders/stream?platform=ps5", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream;charset=UTF-8", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	placed := placeOrder(t, env)

	var eventLine, dataLine string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: order.created") {
			eventLine = line
			dataLine, err = reader.ReadString('\n')
			require.NoError(t, err)
			break
		}
	}
	assert.Equal(t, "event: order.created\n", eventLine)
	assert.Contains(t, dataLine, placed.Order.OrderID)
}
