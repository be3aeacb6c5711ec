/*
Package sqlitemaster reads the SQLite schema catalog (sqlite_master)
and drops triggers, indexes and views in bulk.

To use this package, establish an SQLite connection (via the database/sql
package) and pass the resulting handle to the sqlitemaster functions,
e.g.

	db, err := sql.Open("sqlite3", "/path/to/sqlite.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer db.Close()

	triggers, err := sqlitemaster.ObjectsOfType(ctx, db, sqlitemaster.ObjectTrigger)
	if err != nil {
	    log.Fatal(err)
	}

	for _, tr := range triggers {
	    fmt.Println(tr.Name, "on", tr.TableName)
	}

	if err := sqlitemaster.DropTriggers(ctx, db); err != nil {
	    log.Fatal(err)
	}

Any *sql.DB, *sql.Conn or *sql.Tx can be passed as the connection.
The package never opens, closes or configures connections, and never
starts a transaction of its own.

# Dropping Objects

Each drop function reads the full list of matching objects first and
only then issues one DROP ... IF EXISTS statement per object, so the
catalog is never modified while a cursor over it is open. Running a
drop function twice is harmless: the second call finds nothing to do.

Statements always name the database explicitly, e.g.
DROP VIEW IF EXISTS "main"."v", so a temp object with the same name is
never dropped in place of the one that was listed.

The statements are issued independently. If one fails, the function
stops and returns an error whose Kind is ErrStatement; objects dropped
before the failure stay dropped. Wrap the call in a transaction (pass
a *sql.Tx) if all-or-nothing behaviour is needed.

DropIndexes skips indexes whose names start with "sqlite_". SQLite
creates these to enforce UNIQUE and PRIMARY KEY constraints, and they
cannot be dropped directly.

# Multiple Databases

In SQLite, a single database connection can access multiple databases,
each with their own schemas and data. In this package, an individual
database is represented by the Schema type.

All of the top-level functions in this package have matching methods
on the Schema type. Use the Schema methods to restrict scope to a
particular database, e.g. Temp.DropTriggers or DB("aux").Objects. The
top-level functions operate on the main database.

See https://sqlite.org/lang_naming.html for details.

# Logging

Debug-level events are written to the zerolog logger attached to the
context (see zerolog.Ctx). Nothing is logged when no logger is
attached.
*/
package sqlitemaster
