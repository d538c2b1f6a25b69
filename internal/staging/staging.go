// Package staging manages the filesystem area backing the deferred-payment
// flow: a temp directory per draft token holding the payload file and the
// customer's uploads, and a permanent directory per confirmed order.
package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
)

const (
	payloadFile = "order.json"
	markerFile  = "confirmed.json"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type Staging struct {
	root string
}

type marker struct {
	OrderNumber string    `json:"numero_pedido"`
	ConfirmedAt time.Time `json:"fecha"`
}

// New prepares the staging area under root (root/temp and root/pedidos).
func New(root string) (*Staging, error) {
	for _, dir := range []string{filepath.Join(root, "temp"), filepath.Join(root, "pedidos")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create uploads directory: %w", err)
		}
	}
	return &Staging{root: root}, nil
}

// TempDir returns the draft directory for a token, creating it if needed.
func (s *Staging) TempDir(token string) (string, error) {
	dir := filepath.Join(s.root, "temp", token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create draft directory: %w", err)
	}
	return dir, nil
}

// OrderDir returns the permanent asset directory for an order number,
// creating it if needed.
func (s *Staging) OrderDir(orderNumber string) (string, error) {
	dir := filepath.Join(s.root, "pedidos", orderNumber)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create order directory: %w", err)
	}
	return dir, nil
}

// SafeFilename sanitizes an uploaded filename and prefixes it with a
// millisecond timestamp, matching the layout of the permanent store.
func SafeFilename(original string) string {
	if original == "" {
		original = "foto"
	}
	safe := unsafeChars.ReplaceAllString(original, "_")
	return fmt.Sprintf("%d_%s", time.Now().UnixMilli(), safe)
}

// SavePayload writes the draft payload to the token's staging directory.
func (s *Staging) SavePayload(token string, payload *models.OrderRequest) error {
	dir, err := s.TempDir(token)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode draft payload: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, payloadFile), data, 0o644)
}

// LoadPayload reads back a staged payload. Returns ErrNotFound when the
// directory or the payload file is gone (already confirmed or expired).
func (s *Staging) LoadPayload(token string) (*models.OrderRequest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "temp", token, payloadFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: payload temporal %s", errs.ErrNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft payload: %w", err)
	}

	var payload models.OrderRequest
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode draft payload: %w", err)
	}
	return &payload, nil
}

// WriteMarker records that the draft was materialized into an order.
// Written before the asset move so a crashed confirmation can be retried
// without creating a second order.
func (s *Staging) WriteMarker(token, orderNumber string) error {
	data, err := json.Marshal(marker{OrderNumber: orderNumber, ConfirmedAt: time.Now()})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.root, "temp", token, markerFile), data, 0o644)
}

// Marker returns the order number a draft was already confirmed into,
// or ok=false when no marker exists.
func (s *Staging) Marker(token string) (orderNumber string, ok bool) {
	data, err := os.ReadFile(filepath.Join(s.root, "temp", token, markerFile))
	if err != nil {
		return "", false
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil || m.OrderNumber == "" {
		return "", false
	}
	return m.OrderNumber, true
}

// MoveAssets moves every staged file except the payload and the marker
// into the order's permanent directory and returns the destination paths.
func (s *Staging) MoveAssets(token, orderNumber string) ([]string, error) {
	srcDir := filepath.Join(s.root, "temp", token)
	entries, err := os.ReadDir(srcDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft directory: %w", err)
	}

	dstDir, err := s.OrderDir(orderNumber)
	if err != nil {
		return nil, err
	}

	var moved []string
	for _, entry := range entries {
		name := entry.Name()
		if name == payloadFile || name == markerFile || entry.IsDir() {
			continue
		}
		dst := filepath.Join(dstDir, name)
		if err := os.Rename(filepath.Join(srcDir, name), dst); err != nil {
			return moved, fmt.Errorf("failed to move asset %s: %w", name, err)
		}
		moved = append(moved, dst)
	}
	return moved, nil
}

// Remove deletes the draft directory and everything left in it.
func (s *Staging) Remove(token string) error {
	return os.RemoveAll(filepath.Join(s.root, "temp", token))
}
