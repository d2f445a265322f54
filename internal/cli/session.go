package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/calvinalkan/docdb/internal/config"
	"github.com/calvinalkan/docdb/pkg/docdb"
)

// session carries what commands share for one invocation (or one shell).
// The database is opened on first use so help and print-config never touch
// the disk.
type session struct {
	cfg    config.Config
	env    map[string]string
	stdin  io.Reader
	logger *slog.Logger

	db *docdb.DB
}

func (s *session) open() (*docdb.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	opts := s.cfg.DBOptions()
	opts.Logger = s.logger

	db, err := docdb.Open(opts)
	if err != nil {
		return nil, err
	}

	s.db = db

	return db, nil
}

// forget drops the open handle; the next command reopens (and recreates)
// the backing file.
func (s *session) forget() {
	s.db = nil
}

// parseValue reads a command-line value as JSON, falling back to a plain
// string when it is not valid JSON.
func parseValue(arg string) docdb.Node {
	node, err := docdb.ParseJSON([]byte(arg))
	if err != nil {
		return docdb.String(arg)
	}

	return node
}

// formatNode renders n for output: strings raw, containers as indented JSON,
// other scalars as JSON.
func formatNode(n docdb.Node) string {
	switch n.Kind() {
	case docdb.KindString:
		s, _ := n.AsString()
		return s
	case docdb.KindArray, docdb.KindObject:
		var buf bytes.Buffer

		compact := []byte(n.String())
		if err := json.Indent(&buf, compact, "", "  "); err != nil {
			return string(compact)
		}

		return buf.String()
	default:
		return n.String()
	}
}
