package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS pedidos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    numero_pedido TEXT UNIQUE NOT NULL,
    fecha_creacion DATETIME DEFAULT CURRENT_TIMESTAMP,
    fecha_pago DATETIME,

    cliente_nombre TEXT NOT NULL,
    cliente_apellidos TEXT NOT NULL,
    cliente_email TEXT NOT NULL,
    cliente_telefono TEXT NOT NULL,

    producto_tipo TEXT NOT NULL,
    producto_nombre TEXT NOT NULL,
    cantidad INTEGER DEFAULT 1,
    cantidad_litofanias INTEGER,
    plazo_entrega INTEGER NOT NULL,

    precio_base DECIMAL(10, 2) NOT NULL,
    precio_extras DECIMAL(10, 2) DEFAULT 0,
    precio_descuento DECIMAL(10, 2) DEFAULT 0,
    precio_total DECIMAL(10, 2) NOT NULL,

    estado TEXT DEFAULT 'pendiente_pago',
    pagado BOOLEAN DEFAULT 0,
    stripe_session_id TEXT,
    stripe_payment_intent TEXT,

    newsletter BOOLEAN DEFAULT 0,
    notas TEXT,

    ultima_actualizacion DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pedido_extras (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pedido_id INTEGER NOT NULL,
    extra_id TEXT NOT NULL,
    extra_nombre TEXT NOT NULL,
    extra_precio DECIMAL(10, 2) NOT NULL,
    FOREIGN KEY (pedido_id) REFERENCES pedidos(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS pedido_historial (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pedido_id INTEGER NOT NULL,
    estado_anterior TEXT,
    estado_nuevo TEXT NOT NULL,
    fecha DATETIME DEFAULT CURRENT_TIMESTAMP,
    notas TEXT,
    FOREIGN KEY (pedido_id) REFERENCES pedidos(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_numero_pedido ON pedidos(numero_pedido);
CREATE INDEX IF NOT EXISTS idx_cliente_email ON pedidos(cliente_email);
CREATE INDEX IF NOT EXISTS idx_estado ON pedidos(estado);
CREATE INDEX IF NOT EXISTS idx_fecha_creacion ON pedidos(fecha_creacion);
`

type Store struct {
	db *sqlx.DB
}

// NewStore opens (creating if needed) the SQLite database at path and
// initializes the schema. Pass ":memory:" for a throwaway instance.
func NewStore(path string) (*Store, error) {
	if !strings.HasPrefix(path, ":memory:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps an
	// in-memory database alive for the life of the store.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}
