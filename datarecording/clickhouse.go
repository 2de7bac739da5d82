package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// ClickHouseConfig locates a ClickHouse server.
type ClickHouseConfig struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// ClickHouseRecorder is a DataRecorder that writes to a ClickHouse server
// with the native protocol. Tables are MergeTree tables ordered by their
// first column.
type ClickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*table
	entryCount int
}

// NewClickHouseRecorder connects to the server and flushes the recorder when
// the program exits through atexit.
func NewClickHouseRecorder(cfg ClickHouseConfig) (*ClickHouseRecorder, error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	r := &ClickHouseRecorder{
		conn:      conn,
		batchSize: cfg.BatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

var clickHouseTypes = map[reflect.Kind]string{
	reflect.Bool:    "Bool",
	reflect.Int:     "Int64",
	reflect.Int8:    "Int8",
	reflect.Int16:   "Int16",
	reflect.Int32:   "Int32",
	reflect.Int64:   "Int64",
	reflect.Uint:    "UInt64",
	reflect.Uint8:   "UInt8",
	reflect.Uint16:  "UInt16",
	reflect.Uint32:  "UInt32",
	reflect.Uint64:  "UInt64",
	reflect.Float32: "Float32",
	reflect.Float64: "Float64",
	reflect.String:  "String",
}

// createClickHouseTableSQL returns the statement that creates a table for
// entries like sample.
func createClickHouseTableSQL(tableName string, sample any) (string, error) {
	if err := checkStructFields(sample); err != nil {
		return "", err
	}

	t := reflect.TypeOf(sample)
	if t.NumField() == 0 {
		return "", fmt.Errorf("%w: no fields", ErrInvalidEntry)
	}

	columns := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		columns = append(columns,
			fmt.Sprintf("%s %s", f.Name, clickHouseTypes[f.Type.Kind()]))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		tableName, strings.Join(columns, ",\n\t"), t.Field(0).Name), nil
}

// clickHouseRow converts the fields of an entry into values the driver
// accepts for the column types above.
func clickHouseRow(entry any) []any {
	v := reflect.ValueOf(entry)
	row := make([]any, v.NumField())

	for i := range row {
		f := v.Field(i)

		switch f.Kind() {
		case reflect.Int:
			row[i] = f.Int()
		case reflect.Uint:
			row[i] = f.Uint()
		default:
			row[i] = f.Interface()
		}
	}

	return row
}

// CreateTable creates a table whose columns are the fields of sampleEntry.
func (r *ClickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	createSQL, err := createClickHouseTableSQL(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	err = r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
}

// InsertData buffers an entry.
func (r *ClickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	table, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)
	r.entryCount++
	full := r.entryCount >= r.batchSize

	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

// ListTables returns the names of the tables, sorted.
func (r *ClickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, 0, len(r.tables))
	for name := range r.tables {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

// Flush sends one batch per non-empty table.
func (r *ClickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for tableName, table := range r.tables {
		if len(table.entries) == 0 {
			continue
		}

		batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
		if err != nil {
			panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
		}

		for _, entry := range table.entries {
			if err := batch.Append(clickHouseRow(entry)...); err != nil {
				panic(fmt.Errorf("failed to append to %s: %w", tableName, err))
			}
		}

		if err := batch.Send(); err != nil {
			panic(fmt.Errorf("failed to send batch to %s: %w", tableName, err))
		}

		table.entries = nil
	}

	r.entryCount = 0
}

// Close flushes remaining data and closes the connection.
func (r *ClickHouseRecorder) Close() error {
	r.Flush()
	return r.conn.Close()
}
