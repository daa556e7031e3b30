package predicate

import "strings"

// Dialect SQL方言接口
// 占位符统一使用 ?，由 gorm 负责按驱动改写
type Dialect interface {
	Name() string
	Quote(field string) string
	Fold(column string) string
}

// quoteWith 按标识符引号包裹字段，支持 table.column 形式
func quoteWith(field string, q string) string {
	parts := strings.Split(field, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// MySQLDialect MySQL方言
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

// Name 方言名称
func (d *MySQLDialect) Name() string { return "mysql" }

// Quote 引用字段名
func (d *MySQLDialect) Quote(field string) string {
	return quoteWith(field, "`")
}

// Fold 大小写折叠
func (d *MySQLDialect) Fold(column string) string {
	return "LOWER(" + column + ")"
}

// PostgreSQLDialect PostgreSQL方言
type PostgreSQLDialect struct{}

// NewPostgreSQLDialect 创建PostgreSQL方言
func NewPostgreSQLDialect() *PostgreSQLDialect {
	return &PostgreSQLDialect{}
}

// Name 方言名称
func (d *PostgreSQLDialect) Name() string { return "postgres" }

// Quote 引用字段名
func (d *PostgreSQLDialect) Quote(field string) string {
	return quoteWith(field, `"`)
}

// Fold 大小写折叠，非文本列先转为文本
func (d *PostgreSQLDialect) Fold(column string) string {
	return "LOWER(CAST(" + column + " AS TEXT))"
}

// SQLiteDialect SQLite方言
type SQLiteDialect struct{}

// NewSQLiteDialect 创建SQLite方言
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

// Name 方言名称
func (d *SQLiteDialect) Name() string { return "sqlite" }

// Quote 引用字段名
func (d *SQLiteDialect) Quote(field string) string {
	return quoteWith(field, `"`)
}

// Fold 大小写折叠
func (d *SQLiteDialect) Fold(column string) string {
	return "LOWER(" + column + ")"
}

// GetDialect 根据驱动名获取方言
func GetDialect(driver string) Dialect {
	switch driver {
	case "mysql":
		return NewMySQLDialect()
	case "postgres", "postgresql":
		return NewPostgreSQLDialect()
	case "sqlite", "sqlite3":
		return NewSQLiteDialect()
	default:
		return NewMySQLDialect()
	}
}
