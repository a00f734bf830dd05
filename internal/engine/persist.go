package engine

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seralab/contexture/internal/doctable"
	"github.com/seralab/contexture/internal/index"
	"github.com/seralab/contexture/internal/postings"
	"github.com/seralab/contexture/internal/schema"
	enginerr "github.com/seralab/contexture/pkg/errors"
)

// snapshot is the persisted indexer layout: the tag list of context types
// in use (so loading can re-link schemas to live type records and mint the
// matching index variants), the per-context schemas and dumped postings,
// and the document table.
type snapshot struct {
	Types    []string
	Contexts []contextSnapshot
	Docs     map[postings.DocID]doctable.DValue
	URIs     map[postings.DocID]string
	NextID   postings.DocID
}

type contextSnapshot struct {
	Name    schema.Context
	Schema  schema.ContextSchema
	Entries []postingEntry
}

type postingEntry struct {
	Key string
	Occ []byte
}

func (e *Engine) storeIx(c StoreIx) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap, err := e.snapshotLocked()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, e.ioError("store", c.Path, err)
		}
	}
	tmp := c.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, e.ioError("store", c.Path, err)
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, e.ioError("store", c.Path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, e.ioError("store", c.Path, err)
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		os.Remove(tmp)
		return nil, e.ioError("store", c.Path, err)
	}

	if e.metrics != nil {
		e.metrics.SnapshotsTotal.WithLabelValues("store", "ok").Inc()
	}
	e.logger.Info("index stored", "path", c.Path,
		"documents", e.ix.Table.Size(), "contexts", len(e.ix.Schema))
	return ResOK{}, nil
}

func (e *Engine) loadIx(c LoadIx) (Result, error) {
	// Decode and rebuild outside the write lock; only the final swap
	// needs exclusivity.
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, e.ioError("load", c.Path, err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, e.ioError("load", c.Path, err)
	}

	ix, err := e.rebuild(snap)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.ix = ix
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SnapshotsTotal.WithLabelValues("load", "ok").Inc()
		e.metrics.LiveDocuments.Set(float64(ix.Table.Size()))
		e.metrics.LiveContexts.Set(float64(len(ix.Schema)))
	}
	e.logger.Info("index loaded", "path", c.Path,
		"documents", ix.Table.Size(), "contexts", len(ix.Schema))
	return ResOK{}, nil
}

// snapshotLocked dumps the live indexer. Callers hold at least the read
// lock.
func (e *Engine) snapshotLocked() (*snapshot, error) {
	snap := &snapshot{
		Docs:   make(map[postings.DocID]doctable.DValue),
		URIs:   make(map[postings.DocID]string),
		NextID: 0,
	}

	typesInUse := make(map[string]struct{})
	for _, cx := range e.ix.Schema.Contexts() {
		cs := e.ix.Schema[cx]
		typesInUse[cs.Type] = struct{}{}

		cell, ok := e.ix.Cix.Get(cx)
		if !ok {
			return nil, enginerr.Newf(enginerr.ErrInternal, enginerr.CodeInternal,
				"schema context %q missing from index", cx)
		}
		list := cell.Ix.ToList()
		entries := make([]postingEntry, 0, len(list))
		for _, entry := range list {
			data, err := postings.EncodeOccurrences(entry.Occ)
			if err != nil {
				return nil, enginerr.Newf(enginerr.ErrInternal, enginerr.CodeInternal,
					"encoding postings of %q in %q: %v", entry.Key, cx, err)
			}
			entries = append(entries, postingEntry{Key: entry.Key, Occ: data})
		}
		snap.Contexts = append(snap.Contexts, contextSnapshot{
			Name:    cx,
			Schema:  cs,
			Entries: entries,
		})
	}
	for tn := range typesInUse {
		snap.Types = append(snap.Types, tn)
	}

	docs, uris, nextID := e.ix.Table.Snapshot()
	for id, dv := range docs {
		snap.Docs[id] = dv
		snap.URIs[id] = uris[id]
	}
	snap.NextID = nextID
	return snap, nil
}

// rebuild reconstructs an indexer from a snapshot, re-linking context
// types by name. A type tag not present in the registry fails with an
// unknown-type error.
func (e *Engine) rebuild(snap snapshot) (*Indexer, error) {
	for _, tn := range snap.Types {
		if _, ok := e.types.Get(tn); !ok {
			return nil, enginerr.Newf(enginerr.ErrUnknownType, enginerr.CodeUnknownType,
				"persisted index uses unregistered context type %q", tn)
		}
	}

	ix := NewIndexer()
	for _, cs := range snap.Contexts {
		ct, ok := e.types.Get(cs.Schema.Type)
		if !ok {
			return nil, enginerr.Newf(enginerr.ErrUnknownType, enginerr.CodeUnknownType,
				"persisted context %q uses unregistered type %q", cs.Name, cs.Schema.Type)
		}
		cell := ct.NewIndex()
		entries := make([]index.Entry, 0, len(cs.Entries))
		for _, pe := range cs.Entries {
			occ, err := postings.DecodeOccurrences(pe.Occ)
			if err != nil {
				return nil, e.ioError("load", cs.Name, err)
			}
			entries = append(entries, index.Entry{Key: pe.Key, Occ: occ})
		}
		cell.Ix.InsertList(postings.MergeOccurrences, entries)
		if err := ix.Cix.InsertContext(cs.Name, cell); err != nil {
			return nil, enginerr.Newf(enginerr.ErrInternal, enginerr.CodeInternal,
				"duplicate context %q in snapshot", cs.Name)
		}
		ix.Schema[cs.Name] = cs.Schema
	}

	ix.Table = doctable.Restore(snap.Docs, snap.URIs, snap.NextID)
	return ix, nil
}

func (e *Engine) ioError(op, path string, err error) error {
	if e.metrics != nil {
		e.metrics.SnapshotsTotal.WithLabelValues(op, "error").Inc()
	}
	return &enginerr.EngineError{
		Err:     enginerr.ErrIO,
		Code:    enginerr.CodeIO,
		Message: fmt.Sprintf("%s %s: %v", op, path, err),
	}
}
