package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const opTimeout = 5 * time.Second

// partitionTables — по таблице на раздел, схема у всех одинаковая.
var partitionTables = map[domain.Partition]string{
	domain.PartitionActive:    "active_orders",
	domain.PartitionCompleted: "completed_orders",
	domain.PartitionCancelled: "cancelled_orders",
}

// filterColumns — колонки, по которым разрешена выборка профилей.
var filterColumns = map[domain.OrderField]string{
	domain.FieldCustomerID:        "customer_id",
	domain.FieldMerchantID:        "merchant_id",
	domain.FieldDeliveryPartnerID: "delivery_partner_id",
}

const orderColumns = `order_id, customer_id, merchant_id, delivery_partner_id, items, total_price,
	use_rewards, use_delivery, rewards_amount_used, customer_rewards_points_used,
	status, created_date, updated_date, created_by, updated_by, version`

// itemRecord — формат позиции в JSONB-колонке items.
type itemRecord struct {
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type orderStore struct {
	db *sql.DB
}

// NewOrderStore создаёт PostgreSQL-реализацию OrderStore.
func NewOrderStore(store *Store) domain.OrderStore {
	return &orderStore{db: store.DB()}
}

func tableFor(p domain.Partition) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("unknown partition %q", p)
	}
	return partitionTables[p], nil
}

func (s *orderStore) Insert(ctx context.Context, p domain.Partition, order domain.Order) error {
	table, err := tableFor(p)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, other := range domain.Partitions {
		found, err := existsTx(ctx, tx, partitionTables[other], order.OrderID)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: %s", domain.ErrOrderExists, order.OrderID)
		}
	}

	if err := insertTx(ctx, tx, table, order, ""); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrOrderExists, order.OrderID)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert order: %w", err)
	}
	return nil
}

func (s *orderStore) Get(ctx context.Context, p domain.Partition, orderID string) (domain.Order, error) {
	table, err := tableFor(p)
	if err != nil {
		return domain.Order{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM `+table+` WHERE order_id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	return order, nil
}

func (s *orderStore) Find(ctx context.Context, p domain.Partition, filter domain.OrderFilter) ([]domain.Order, error) {
	table, err := tableFor(p)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []interface{}
	)
	if filter.Field != "" {
		column, ok := filterColumns[filter.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported filter field %q", filter.Field)
		}
		args = append(args, filter.Value)
		where = append(where, fmt.Sprintf("%s = $%d AND %s <> ''", column, len(args), column))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.DeliveryOnly {
		where = append(where, "use_delivery")
	}

	query := `SELECT ` + orderColumns + ` FROM ` + table
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_date ASC, order_id ASC`

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func (s *orderStore) Update(ctx context.Context, order domain.Order) (int64, error) {
	items, err := encodeItems(order.Items)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var version int64
	err = s.db.QueryRowContext(ctx, `
		UPDATE active_orders
		SET delivery_partner_id = $1,
		    items = $2,
		    total_price = $3,
		    rewards_amount_used = $4,
		    customer_rewards_points_used = $5,
		    status = $6,
		    updated_date = $7,
		    updated_by = $8,
		    version = version + 1
		WHERE order_id = $9
		  AND version = $10
		RETURNING version
	`,
		order.DeliveryPartnerID, items, order.TotalPrice, order.RewardsAmountUsed,
		order.CustomerRewardsPointsUsed, string(order.Status), order.UpdatedDate,
		string(order.UpdatedBy), order.OrderID, order.Version,
	).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("update order: %w", err)
	}

	found, err := s.exists(ctx, "active_orders", order.OrderID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.OrderID)
	}
	return 0, fmt.Errorf("%w: %s expected version %d", domain.ErrConflictingUpdate, order.OrderID, order.Version)
}

// Move удаляет строку из active_orders с проверкой версии и вставляет её
// в терминальную таблицу в одной транзакции.
func (s *orderStore) Move(ctx context.Context, order domain.Order, to domain.Partition) error {
	if to == domain.PartitionActive {
		return fmt.Errorf("move target must be terminal, got %q", to)
	}
	target, err := tableFor(to)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM active_orders WHERE order_id = $1 AND version = $2`, order.OrderID, order.Version)
	if err != nil {
		return fmt.Errorf("delete active order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return s.explainMissedMove(ctx, tx, order, target)
	}

	next := order.Clone()
	next.Version = order.Version + 1
	if err := insertTx(ctx, tx, target, next, "ON CONFLICT (order_id) DO NOTHING"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit move order: %w", err)
	}
	return nil
}

// explainMissedMove различает повтор уже выполненного переноса, конфликт версий и отсутствие заказа.
func (s *orderStore) explainMissedMove(ctx context.Context, tx *sql.Tx, order domain.Order, target string) error {
	var version int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM `+target+` WHERE order_id = $1`, order.OrderID).Scan(&version)
	switch {
	case err == nil && version == order.Version+1:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check moved order: %w", err)
	}

	found, err := existsTx(ctx, tx, "active_orders", order.OrderID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %s expected version %d", domain.ErrConflictingUpdate, order.OrderID, order.Version)
	}
	return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.OrderID)
}

func (s *orderStore) Delete(ctx context.Context, p domain.Partition, orderID string) error {
	table, err := tableFor(p)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return nil
}

func (s *orderStore) exists(ctx context.Context, table, orderID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE order_id = $1`, orderID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return true, nil
}

func existsTx(ctx context.Context, tx *sql.Tx, table, orderID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE order_id = $1`, orderID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return true, nil
}

func insertTx(ctx context.Context, tx *sql.Tx, table string, order domain.Order, onConflict string) error {
	items, err := encodeItems(order.Items)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+table+` (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		`+onConflict,
		order.OrderID, order.CustomerID, order.MerchantID, order.DeliveryPartnerID, items,
		order.TotalPrice, order.UseRewards, order.UseDelivery, order.RewardsAmountUsed,
		order.CustomerRewardsPointsUsed, string(order.Status), order.CreatedDate, order.UpdatedDate,
		string(order.CreatedBy), string(order.UpdatedBy), order.Version,
	)
	if err != nil {
		return fmt.Errorf("insert order into %s: %w", table, err)
	}
	return nil
}

func encodeItems(items []domain.OrderItem) ([]byte, error) {
	records := make([]itemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, itemRecord{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}
	return data, nil
}

func decodeItems(data []byte) ([]domain.OrderItem, error) {
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	items := make([]domain.OrderItem, 0, len(records))
	for _, r := range records {
		items = append(items, domain.OrderItem{ProductID: r.ProductID, Quantity: r.Quantity, UnitPrice: r.UnitPrice})
	}
	return items, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                        domain.Order
		items                        []byte
		status, createdBy, updatedBy string
	)
	if err := row.Scan(
		&order.OrderID, &order.CustomerID, &order.MerchantID, &order.DeliveryPartnerID, &items,
		&order.TotalPrice, &order.UseRewards, &order.UseDelivery, &order.RewardsAmountUsed,
		&order.CustomerRewardsPointsUsed, &status, &order.CreatedDate, &order.UpdatedDate,
		&createdBy, &updatedBy, &order.Version,
	); err != nil {
		return domain.Order{}, err
	}

	decoded, err := decodeItems(items)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = decoded
	order.Status = domain.OrderStatus(status)
	order.CreatedBy = domain.Actor(createdBy)
	order.UpdatedBy = domain.Actor(updatedBy)
	return order, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderStore = (*orderStore)(nil)
