package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func setupSellerOrderRouter(t *testing.T, sellerID int) (*gin.Engine, sqlmock.Sqlmock, *sql.DB, *mockProducer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	producer := &mockProducer{}
	handler := NewSellerOrderHandler(db, producer, zaptest.NewLogger(t))
	router := gin.New()
	orders := router.Group("/api/seller/orders", authAs(seller(sellerID)))
	orders.GET("", handler.GetSellerOrders)
	orders.GET("/:id", handler.GetSellerOrder)
	orders.PATCH("/:id", handler.UpdateSellerOrder)
	return router, mock, db, producer
}

func orderRowWithStatus(orderID, buyerID int, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(strings.Split(orderColumns, ", ")).
		AddRow(orderID, "HH-20260829-000123", buyerID, 50.0, 5.0, 4.0, 59.0, status,
			"Jane Doe", "1 Main St", "", "Springfield", "IL", "62704", "United States", "",
			"credit_card", "txn_1_abcdefghijklm", "completed", 59.0, "USD", "", "", nil, now, now)
}

func sellerOrderRow(orderID, buyerID int) *sqlmock.Rows {
	now := time.Now()
	columns := append(strings.Split(strings.ReplaceAll(orderColumns, "o.", ""), ", "),
		"buyer_name", "buyer_email")
	return sqlmock.NewRows(columns).
		AddRow(orderID, "HH-20260829-000123", buyerID, 50.0, 5.0, 4.0, 59.0, "confirmed",
			"Jane Doe", "1 Main St", "", "Springfield", "IL", "62704", "United States", "",
			"credit_card", "txn_1_abcdefghijklm", "completed", 59.0, "USD", "", "", nil, now, now,
			"Jane Doe", "jane@example.com")
}

func TestGetSellerOrdersFiltersItems(t *testing.T) {
	router, mock, db, _ := setupSellerOrderRouter(t, 7)
	defer db.Close()

	mock.ExpectQuery("FROM orders o JOIN users u").
		WithArgs(7).
		WillReturnRows(sellerOrderRow(7, 1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders o").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM order_items oi").
		WillReturnRows(orderItemRows().
			AddRow(100, 7, 10, "Ceramic Vase", 25.0, 2, "vase.jpg", 7, "ceramic-vase", "Vase Works").
			AddRow(101, 7, 11, "Wool Scarf", 30.0, 1, "scarf.jpg", 8, "wool-scarf", "Scarf Co"))

	w := performRequest(router, http.MethodGet, "/api/seller/orders", nil)

	requireStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	orders := body["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	order := orders[0].(map[string]interface{})
	items := order["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected items filtered to one seller, got %d", len(items))
	}
	if order["sellerSubtotal"].(float64) != 50.0 {
		t.Errorf("expected seller subtotal 50, got %v", order["sellerSubtotal"])
	}
	if order["originalTotal"].(float64) != 59.0 {
		t.Errorf("expected original total 59, got %v", order["originalTotal"])
	}
}

func TestGetSellerOrderWithoutOwnItems(t *testing.T) {
	router, mock, db, _ := setupSellerOrderRouter(t, 7)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(7).
		WillReturnRows(orderRowWithStatus(7, 1, "confirmed"))
	mock.ExpectQuery("FROM order_items oi").
		WillReturnRows(orderItemRows().
			AddRow(100, 7, 10, "Ceramic Vase", 25.0, 2, "vase.jpg", 99, "ceramic-vase", "Vase Works"))

	w := performRequest(router, http.MethodGet, "/api/seller/orders/7", nil)

	requireStatus(t, w, http.StatusForbidden)
	requireError(t, w, "You can only view orders containing your products")
}

func TestUpdateSellerOrderStatus(t *testing.T) {
	router, mock, db, producer := setupSellerOrderRouter(t, 7)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(7).
		WillReturnRows(orderRowWithStatus(7, 1, "confirmed"))
	mock.ExpectQuery("FROM order_items oi").
		WillReturnRows(orderItemRows().
			AddRow(100, 7, 10, "Ceramic Vase", 25.0, 2, "vase.jpg", 7, "ceramic-vase", "Vase Works"))
	mock.ExpectExec("UPDATE orders SET status = \\$1").
		WithArgs("shipped", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(7).
		WillReturnRows(orderRowWithStatus(7, 1, "shipped"))

	w := performRequest(router, http.MethodPatch, "/api/seller/orders/7", map[string]interface{}{
		"status": "shipped",
	})

	requireStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	order := body["order"].(map[string]interface{})
	if order["status"] != "shipped" {
		t.Errorf("expected status shipped, got %v", order["status"])
	}

	if len(producer.messages) != 1 {
		t.Errorf("expected a status update event, got %d messages", len(producer.messages))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateSellerOrderNotOwned(t *testing.T) {
	router, mock, db, _ := setupSellerOrderRouter(t, 7)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(7).
		WillReturnRows(orderRowWithStatus(7, 1, "confirmed"))
	mock.ExpectQuery("FROM order_items oi").
		WillReturnRows(orderItemRows().
			AddRow(100, 7, 10, "Ceramic Vase", 25.0, 2, "vase.jpg", 99, "ceramic-vase", "Vase Works"))

	w := performRequest(router, http.MethodPatch, "/api/seller/orders/7", map[string]interface{}{
		"status": "shipped",
	})

	requireStatus(t, w, http.StatusForbidden)
	requireError(t, w, "You can only update orders containing your products")
}

func TestUpdateSellerOrderInvalidStatus(t *testing.T) {
	router, _, db, _ := setupSellerOrderRouter(t, 7)
	defer db.Close()

	w := performRequest(router, http.MethodPatch, "/api/seller/orders/7", map[string]interface{}{
		"status": "teleported",
	})

	requireStatus(t, w, http.StatusBadRequest)
	requireError(t, w, "Invalid status")
}

func TestUpdateSellerOrderNotFound(t *testing.T) {
	router, mock, db, _ := setupSellerOrderRouter(t, 7)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	w := performRequest(router, http.MethodPatch, "/api/seller/orders/99", map[string]interface{}{
		"status": "shipped",
	})

	requireStatus(t, w, http.StatusNotFound)
	requireError(t, w, "Order not found")
}

// A status can move backwards; only membership in the enumeration is checked.
func TestUpdateSellerOrderStatusNotSequenced(t *testing.T) {
	router, mock, db, _ := setupSellerOrderRouter(t, 7)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(7).
		WillReturnRows(orderRowWithStatus(7, 1, "delivered"))
	mock.ExpectQuery("FROM order_items oi").
		WillReturnRows(orderItemRows().
			AddRow(100, 7, 10, "Ceramic Vase", 25.0, 2, "vase.jpg", 7, "ceramic-vase", "Vase Works"))
	mock.ExpectExec("UPDATE orders SET status = \\$1").
		WithArgs("pending", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
		WithArgs(7).
		WillReturnRows(orderRowWithStatus(7, 1, "pending"))

	w := performRequest(router, http.MethodPatch, "/api/seller/orders/7", map[string]interface{}{
		"status": "pending",
	})

	requireStatus(t, w, http.StatusOK)
}
