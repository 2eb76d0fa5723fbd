package handlers

import (
	"database/sql"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/Figuelia98/wdd430-group-project/kafka"
	"github.com/Figuelia98/wdd430-group-project/models"
)

func setupOrderRouter(t *testing.T, userID int) (*gin.Engine, sqlmock.Sqlmock, *sql.DB, *mockProducer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	producer := &mockProducer{}
	handler := NewOrderHandler(db, producer, nil, zaptest.NewLogger(t))
	router := gin.New()
	orders := router.Group("/api/orders", authAs(buyer(userID)))
	orders.POST("", handler.CreateOrder)
	orders.GET("", handler.GetOrders)
	orders.GET("/:id", handler.GetOrder)
	return router, mock, db, producer
}

func validOrderRequest() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"product": 10, "quantity": 2, "image": "vase.jpg"},
		},
		"subtotal": 50.0,
		"shipping": 5.0,
		"tax":      4.0,
		"total":    59.0,
		"shippingAddress": map[string]interface{}{
			"fullName":     "Jane Doe",
			"addressLine1": "1 Main St",
			"city":         "Springfield",
			"state":        "IL",
			"postalCode":   "62704",
		},
		"paymentInfo": map[string]interface{}{
			"method": "credit_card",
		},
	}
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "price", "quantity", "track_quantity", "allow_backorder", "seller_id"})
}

func orderRow(orderID, buyerID int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(strings.Split(orderColumns, ", ")).
		AddRow(orderID, "HH-20260829-000123", buyerID, 50.0, 5.0, 4.0, 59.0, "confirmed",
			"Jane Doe", "1 Main St", "", "Springfield", "IL", "62704", "United States", "",
			"credit_card", "txn_1_abcdefghijklm", "completed", 59.0, "USD", "", "", nil, now, now)
}

func orderItemRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "price", "quantity",
		"image", "seller_id", "slug", "seller_name"})
}

func TestCreateOrderSuccess(t *testing.T) {
	router, mock, db, producer := setupOrderRouter(t, 1)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, quantity, track_quantity, allow_backorder, seller_id FROM products")).
		WithArgs(pq.Array([]int{10})).
		WillReturnRows(productRows().AddRow(10, "Ceramic Vase", 25.0, 10, true, false, 7))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(55, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(55, 10, "Ceramic Vase", 25.0, 2, "vase.jpg", 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET quantity = quantity - $1")).
		WithArgs(2, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := performRequest(router, http.MethodPost, "/api/orders", validOrderRequest())

	requireStatus(t, w, http.StatusCreated)
	body := decodeBody(t, w)
	if body["message"] != "Order placed successfully" {
		t.Errorf("unexpected message: %v", body["message"])
	}

	order := body["order"].(map[string]interface{})
	if order["status"] != "confirmed" {
		t.Errorf("expected status confirmed, got %v", order["status"])
	}
	payment := order["paymentInfo"].(map[string]interface{})
	if payment["status"] != "completed" {
		t.Errorf("expected payment completed, got %v", payment["status"])
	}
	if txn, _ := payment["transactionId"].(string); !strings.HasPrefix(txn, "txn_") {
		t.Errorf("unexpected transaction id %q", txn)
	}

	items := order["items"].([]interface{})
	first := items[0].(map[string]interface{})
	if first["price"].(float64) != 25.0 {
		t.Errorf("expected snapshot price from catalog, got %v", first["price"])
	}

	if len(producer.messages) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(producer.messages))
	}
	if producer.messages[0].Topic != kafka.OrderEventsTopic {
		t.Errorf("unexpected topic %q", producer.messages[0].Topic)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// The decrement path invalidates the cached product; an unreachable cache
// must only cost a warning, never the checkout.
func TestCreateOrderCacheUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer redisClient.Close()

	handler := NewOrderHandler(db, &mockProducer{}, redisClient, zaptest.NewLogger(t))
	router := gin.New()
	router.POST("/api/orders", authAs(buyer(1)), handler.CreateOrder)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, quantity, track_quantity, allow_backorder, seller_id FROM products")).
		WithArgs(pq.Array([]int{10})).
		WillReturnRows(productRows().AddRow(10, "Ceramic Vase", 25.0, 10, true, false, 7))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(57, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(102))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET quantity = quantity - $1")).
		WithArgs(2, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := performRequest(router, http.MethodPost, "/api/orders", validOrderRequest())

	requireStatus(t, w, http.StatusCreated)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateOrderEmptyItems(t *testing.T) {
	router, _, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	req := validOrderRequest()
	req["items"] = []map[string]interface{}{}

	w := performRequest(router, http.MethodPost, "/api/orders", req)

	requireStatus(t, w, http.StatusBadRequest)
	requireError(t, w, "Order must contain at least one item")
}

func TestCreateOrderIncompleteAddress(t *testing.T) {
	router, _, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	req := validOrderRequest()
	req["shippingAddress"] = map[string]interface{}{
		"fullName": "Jane Doe",
		"city":     "Springfield",
	}

	w := performRequest(router, http.MethodPost, "/api/orders", req)

	requireStatus(t, w, http.StatusBadRequest)
	requireError(t, w, "Complete shipping address is required")
}

func TestCreateOrderMissingPayment(t *testing.T) {
	router, _, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	req := validOrderRequest()
	req["paymentInfo"] = map[string]interface{}{}

	w := performRequest(router, http.MethodPost, "/api/orders", req)

	requireStatus(t, w, http.StatusBadRequest)
	requireError(t, w, "Payment information is required")
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	router, mock, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, quantity, track_quantity, allow_backorder, seller_id FROM products")).
		WithArgs(pq.Array([]int{10})).
		WillReturnRows(productRows())

	w := performRequest(router, http.MethodPost, "/api/orders", validOrderRequest())

	requireStatus(t, w, http.StatusBadRequest)
	requireError(t, w, "Some products are no longer available")
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	router, mock, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, quantity, track_quantity, allow_backorder, seller_id FROM products")).
		WithArgs(pq.Array([]int{10})).
		WillReturnRows(productRows().AddRow(10, "Ceramic Vase", 25.0, 1, true, false, 7))

	w := performRequest(router, http.MethodPost, "/api/orders", validOrderRequest())

	requireStatus(t, w, http.StatusBadRequest)
	requireError(t, w, "Insufficient stock for Ceramic Vase")
}

func TestCreateOrderBackorderAllowed(t *testing.T) {
	router, mock, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, quantity, track_quantity, allow_backorder, seller_id FROM products")).
		WithArgs(pq.Array([]int{10})).
		WillReturnRows(productRows().AddRow(10, "Ceramic Vase", 25.0, 0, true, true, 7))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(56, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET quantity = quantity - $1")).
		WithArgs(2, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := performRequest(router, http.MethodPost, "/api/orders", validOrderRequest())

	requireStatus(t, w, http.StatusCreated)
}

func TestGetOrdersPagination(t *testing.T) {
	router, mock, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE buyer_id = \\$1").
		WithArgs(1).
		WillReturnRows(orderRow(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders WHERE buyer_id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery("FROM order_items oi").
		WillReturnRows(orderItemRows().
			AddRow(100, 7, 10, "Ceramic Vase", 25.0, 2, "vase.jpg", 7, "ceramic-vase", "Vase Works"))

	w := performRequest(router, http.MethodGet, "/api/orders?page=1&limit=10", nil)

	requireStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	pagination := body["pagination"].(map[string]interface{})
	if pagination["totalPages"].(float64) != 3 {
		t.Errorf("expected 3 total pages, got %v", pagination["totalPages"])
	}
	if pagination["hasNextPage"] != true {
		t.Error("expected hasNextPage to be true")
	}
	if pagination["hasPrevPage"] != false {
		t.Error("expected hasPrevPage to be false")
	}

	orders := body["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	items := orders[0].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].(map[string]interface{})["productSlug"] != "ceramic-vase" {
		t.Errorf("expected joined product slug, got %v", items[0])
	}
}

func TestGetOrderOwnedByAnotherBuyer(t *testing.T) {
	router, mock, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(7).
		WillReturnRows(orderRow(7, 2))

	w := performRequest(router, http.MethodGet, "/api/orders/7", nil)

	requireStatus(t, w, http.StatusForbidden)
	requireError(t, w, "You can only view your own orders")
}

func TestGetOrderNotFound(t *testing.T) {
	router, mock, db, _ := setupOrderRouter(t, 1)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	w := performRequest(router, http.MethodGet, "/api/orders/99", nil)

	requireStatus(t, w, http.StatusNotFound)
	requireError(t, w, "Order not found")
}

func TestItemsSubtotalMatchesStoredTotal(t *testing.T) {
	order := models.Order{
		Subtotal: 50.0,
		Items: []models.OrderItem{
			{Price: 25.0, Quantity: 2},
		},
	}
	if got := order.ItemsSubtotal(); got != order.Subtotal {
		t.Errorf("expected items subtotal %v to match stored subtotal %v", got, order.Subtotal)
	}
}
