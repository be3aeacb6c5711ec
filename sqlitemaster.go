package sqlitemaster

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Conn is the subset of database/sql used by this package.
// It is satisfied by *sql.DB, *sql.Conn and *sql.Tx, so callers
// decide whether the drop functions run inside a transaction.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// A Schema represents a database attached to the current
// database connection.
type Schema struct {
	name string
}

// DB returns a Schema with the given name. It does not verify
// that a database with this name actually exists. An empty name
// refers to the connection's default catalog, which is what the
// top-level functions use.
func DB(name string) *Schema {
	return &Schema{name}
}

// Main is the database that was used to open a database
// connection.
var Main = DB("main")

// Temp is the database that holds temporary tables, indexes
// etc.
var Temp = DB("temp")

var noSchema = &Schema{}

// Name returns the schema name, or the empty string for the
// default catalog.
func (s *Schema) Name() string {
	return s.name
}

// SchemaNames returns the names of the databases attached to
// the given connection, sorted alphabetically.
func SchemaNames(ctx context.Context, conn Conn) ([]string, error) {

	if isNilConn(conn) {
		return nil, newError(ErrConnection, "", errors.New("could not get schema names: no connection"))
	}

	rows, err := conn.QueryContext(ctx, "SELECT name FROM pragma_database_list ORDER BY name")
	if err != nil {
		return nil, newError(ErrQuery, "", errors.Wrap(err, "could not get schema names"))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, newError(ErrQuery, "", errors.Wrap(err, "could not get schema names"))
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(ErrQuery, "", errors.Wrap(err, "could not get schema names"))
	}

	return names, nil
}

// ObjectType is the kind of a schema object, as recorded in
// the type column of sqlite_master.
type ObjectType uint

const (
	// ObjectTable denotes a table, including virtual tables
	// and the shadow tables that back them.
	ObjectTable ObjectType = iota

	// ObjectIndex denotes an index, whether created with
	// CREATE INDEX or implicitly by a UNIQUE or PRIMARY KEY
	// constraint.
	ObjectIndex

	// ObjectTrigger denotes a trigger.
	ObjectTrigger

	// ObjectView denotes a view.
	ObjectView
)

var objectTypeNames = [...]string{
	ObjectTable:   "table",
	ObjectIndex:   "index",
	ObjectTrigger: "trigger",
	ObjectView:    "view",
}

// ObjectTypes lists every ObjectType in declaration order.
var ObjectTypes = []ObjectType{ObjectTable, ObjectIndex, ObjectTrigger, ObjectView}

// String returns the value SQLite stores in sqlite_master.type.
func (t ObjectType) String() string {
	if int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return fmt.Sprintf("ObjectType(%d)", uint(t))
}

// Scan implements the sql.Scanner interface.
func (t *ObjectType) Scan(src interface{}) error {

	s, ok := toString(src)
	if !ok {
		return fmt.Errorf("invalid ObjectType: %T %v", src, src)
	}

	for i, name := range objectTypeNames {
		if strings.ToLower(s) == name {
			*t = ObjectType(i)
			return nil
		}
	}

	return fmt.Errorf("unsupported ObjectType: %q", s)
}

var objectTypeAliases = map[string]ObjectType{
	"tables":   ObjectTable,
	"indexes":  ObjectIndex,
	"indices":  ObjectIndex,
	"triggers": ObjectTrigger,
	"views":    ObjectView,
}

// ParseObjectType converts a type name such as "index" or
// "Triggers" into an ObjectType. Singular and plural forms are
// accepted in any case.
func ParseObjectType(s string) (ObjectType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if t, ok := objectTypeAliases[name]; ok {
		return t, nil
	}

	var t ObjectType
	if err := t.Scan(name); err != nil {
		return 0, fmt.Errorf("unknown object type %q", s)
	}
	return t, nil
}

// ReservedPrefix is the name prefix SQLite reserves for objects
// it creates itself, such as sqlite_autoindex_* indexes and the
// sqlite_sequence table.
const ReservedPrefix = "sqlite_"

// Object is a row of the schema catalog.
type Object struct {
	Name      string
	TableName string         // The table an index or trigger belongs to. Tables and views name themselves.
	SQL       sql.NullString // NULL for objects created implicitly by SQLite, e.g. auto-indexes.
	Type      ObjectType
}

// Internal reports whether the object was created by SQLite
// itself. Internal indexes cannot be dropped.
func (o Object) Internal() bool {
	return strings.HasPrefix(o.Name, ReservedPrefix)
}

// Objects returns every object in the main database's schema
// catalog, sorted by name. Use the Schema.Objects method to
// query other databases.
func Objects(ctx context.Context, conn Conn) ([]Object, error) {
	return noSchema.Objects(ctx, conn)
}

// Objects returns every object in this Schema's catalog,
// sorted by name.
func (s *Schema) Objects(ctx context.Context, conn Conn) ([]Object, error) {
	return s.masterObjects(ctx, conn, nil)
}

// ObjectsOfType returns the objects of the given type in the
// main database, sorted by name. Use the Schema.ObjectsOfType
// method to query other databases.
//
// If there are no objects of that type, ObjectsOfType returns
// an empty slice.
func ObjectsOfType(ctx context.Context, conn Conn, typ ObjectType) ([]Object, error) {
	return noSchema.ObjectsOfType(ctx, conn, typ)
}

// ObjectsOfType returns the objects of the given type in this
// Schema, sorted by name.
func (s *Schema) ObjectsOfType(ctx context.Context, conn Conn, typ ObjectType) ([]Object, error) {
	return s.masterObjects(ctx, conn, &typ)
}

// DropTriggers drops every trigger in the main database. Use
// the Schema.DropTriggers method to target other databases.
func DropTriggers(ctx context.Context, conn Conn) error {
	return noSchema.DropTriggers(ctx, conn)
}

// DropTriggers drops every trigger in this Schema.
func (s *Schema) DropTriggers(ctx context.Context, conn Conn) error {
	return s.dropObjects(ctx, conn, ObjectTrigger)
}

// DropIndexes drops every index in the main database, except
// for the internal indexes SQLite creates to enforce UNIQUE and
// PRIMARY KEY constraints. Use the Schema.DropIndexes method to
// target other databases.
func DropIndexes(ctx context.Context, conn Conn) error {
	return noSchema.DropIndexes(ctx, conn)
}

// DropIndexes drops every index in this Schema except for
// internal ones.
func (s *Schema) DropIndexes(ctx context.Context, conn Conn) error {
	return s.dropObjects(ctx, conn, ObjectIndex)
}

// DropViews drops every view in the main database. Use the
// Schema.DropViews method to target other databases.
func DropViews(ctx context.Context, conn Conn) error {
	return noSchema.DropViews(ctx, conn)
}

// DropViews drops every view in this Schema.
func (s *Schema) DropViews(ctx context.Context, conn Conn) error {
	return s.dropObjects(ctx, conn, ObjectView)
}

// dropObjects reads the whole list before issuing any DROP.
// Executing statements while a cursor over sqlite_master is
// still open is not safe, and on a single connection it blocks.
func (s *Schema) dropObjects(ctx context.Context, conn Conn, typ ObjectType) error {

	objects, err := s.ObjectsOfType(ctx, conn, typ)
	if err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx)

	for _, obj := range objects {

		if obj.Internal() {
			logger.Debug().Str("name", obj.Name).Stringer("type", typ).Msg("skipping internal object")
			continue
		}

		stmt := s.dropStatement(typ, obj.Name)
		logger.Debug().Str("statement", stmt).Msg("dropping schema object")

		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return newError(ErrStatement, stmt, errors.Wrapf(err, "could not drop %s %s", typ, obj.Name))
		}
	}

	return nil
}

// dropStatement always qualifies the name. Unqualified names
// resolve in temp before main, so the default catalog is spelled
// out as "main" to match the sqlite_master list that was read.
func (s *Schema) dropStatement(typ ObjectType, name string) string {
	schema := s.name
	if schema == "" {
		schema = "main"
	}
	ident := quoteIdent(schema) + "." + quoteIdent(name)
	return "DROP " + strings.ToUpper(typ.String()) + " IF EXISTS " + ident
}

func (s *Schema) masterObjects(ctx context.Context, conn Conn, typ *ObjectType) ([]Object, error) {

	what := "schema objects"
	if typ != nil {
		what = typ.String() + " objects"
	}

	if isNilConn(conn) {
		return nil, newError(ErrConnection, "", errors.Errorf("could not get %s: no connection", what))
	}

	tableName, err := s.masterTable(ctx, conn)
	if err != nil {
		return nil, newError(ErrQuery, "", errors.Wrapf(err, "could not get %s", what))
	}

	var params []interface{}
	whereClause := ""
	if typ != nil {
		whereClause = "WHERE type = ?"
		params = append(params, typ.String())
	}

	q := fmt.Sprintf(
		`SELECT
			name,
			tbl_name,
			sql,
			type
		FROM
			%s
		%s
		ORDER BY
			name`, tableName, whereClause)

	ev := zerolog.Ctx(ctx).Debug().Str("catalog", tableName)
	if typ != nil {
		ev = ev.Stringer("type", *typ)
	}
	ev.Msg("querying schema catalog")

	objects, err := queryObjects(ctx, conn, q, params...)
	if err != nil {
		return nil, newError(ErrQuery, "", errors.Wrapf(err, "could not get %s", what))
	}

	return objects, nil
}

func queryObjects(ctx context.Context, conn Conn, q string, params ...interface{}) ([]Object, error) {

	rows, err := conn.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	objects := []Object{}

	for rows.Next() {
		var obj Object
		if err := rows.Scan(&obj.Name, &obj.TableName, &obj.SQL, &obj.Type); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	return objects, rows.Err()
}

func (s *Schema) masterTable(ctx context.Context, conn Conn) (string, error) {

	if s.name == "" {
		return "sqlite_master", nil
	}

	if sqlower(s.name) == "temp" {
		return "sqlite_temp_master", nil
	}

	// The schema name is spliced directly into the query, so it
	// must name a database that is actually attached.
	if err := s.verify(ctx, conn); err != nil {
		return "", err
	}

	return quoteIdent(s.name) + ".sqlite_master", nil
}

func (s *Schema) verify(ctx context.Context, conn Conn) error {

	q := "SELECT COUNT(*) FROM pragma_database_list WHERE LOWER(name) = ?"

	rows, err := conn.QueryContext(ctx, q, sqlower(s.name))
	if err != nil {
		return err
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if count < 1 {
		// Mimic the error message SQLite returns in this situation.
		return fmt.Errorf("unknown database '%s'", s.name)
	}

	return nil
}

// quoteIdent renders name as a double-quoted SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlower replicates SQLite's LOWER function which converts
// uppercase ASCII characters in a string to lowercase.
func sqlower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return 'a' + r - 'A'
		}
		return r
	}, s)
}

func toString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
