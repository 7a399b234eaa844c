package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func openTestStore(t *testing.T) *AnalysisStore {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	is := is.New(t)
	s := openTestStore(t)

	_, err := s.Get(startFEN)
	is.True(errors.Is(err, ErrNotFound))

	a := Analysis{FEN: startFEN, BestMove: "e2e4", PonderMove: "e7e5", Score: 31, Depth: 12, Nodes: 123456, PV: []string{"e2e4", "e7e5", "g1f3"}}
	stored, err := s.Put(a)
	is.NoErr(err)
	is.True(stored)

	got, err := s.Get(startFEN)
	is.NoErr(err)
	is.Equal(got.BestMove, "e2e4")
	is.Equal(got.PonderMove, "e7e5")
	is.Equal(got.Score, 31)
	is.Equal(got.Depth, 12)
	is.Equal(got.Nodes, uint64(123456))
	is.Equal(got.PV, a.PV)
	is.True(!got.Saved.IsZero())

	// Move counters do not matter.
	got, err = s.Get("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 7 31")
	is.NoErr(err)
	is.Equal(got.BestMove, "e2e4")
}

func TestPutKeepsDeeperAnalysis(t *testing.T) {
	is := is.New(t)
	s := openTestStore(t)

	_, err := s.Put(Analysis{FEN: startFEN, BestMove: "d2d4", Depth: 20})
	is.NoErr(err)

	stored, err := s.Put(Analysis{FEN: startFEN, BestMove: "e2e4", Depth: 8})
	is.NoErr(err)
	is.True(!stored) // shallower result is dropped
	got, err := s.Get(startFEN)
	is.NoErr(err)
	is.Equal(got.BestMove, "d2d4")

	stored, err = s.Put(Analysis{FEN: startFEN, BestMove: "c2c4", Depth: 20})
	is.NoErr(err)
	is.True(stored)
	got, err = s.Get(startFEN)
	is.NoErr(err)
	is.Equal(got.BestMove, "c2c4")
}

func TestLenDeleteClear(t *testing.T) {
	is := is.New(t)
	s := openTestStore(t)

	fens := []string{
		startFEN,
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	}
	for i, fen := range fens {
		_, err := s.Put(Analysis{FEN: fen, BestMove: "a1a2", Depth: i})
		is.NoErr(err)
	}
	n, err := s.Len()
	is.NoErr(err)
	is.Equal(n, 3)

	is.NoErr(s.Delete(fens[1]))
	n, err = s.Len()
	is.NoErr(err)
	is.Equal(n, 2)
	_, err = s.Get(fens[1])
	is.True(errors.Is(err, ErrNotFound))

	is.NoErr(s.Clear())
	n, err = s.Len()
	is.NoErr(err)
	is.Equal(n, 0)
}

func TestOpenOnDisk(t *testing.T) {
	is := is.New(t)
	dir, err := GetDatabaseDir(t.TempDir())
	is.NoErr(err)

	s, err := Open(dir)
	is.NoErr(err)
	_, err = s.Put(Analysis{FEN: startFEN, BestMove: "g1f3", Depth: 3})
	is.NoErr(err)
	is.NoErr(s.Close())

	// Reopen and read back.
	s, err = Open(dir)
	is.NoErr(err)
	defer s.Close()
	got, err := s.Get(startFEN)
	is.NoErr(err)
	is.Equal(got.BestMove, "g1f3")
}

func TestPositionKey(t *testing.T) {
	is := is.New(t)
	is.Equal(PositionKey(startFEN), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -")
	is.Equal(PositionKey("8/8/8/8/8/8/8/K6k w - -"), "8/8/8/8/8/8/8/K6k w - -")
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	dbDir, err := GetDatabaseDir("")
	if err != nil {
		t.Fatalf("GetDatabaseDir failed: %v", err)
	}
	if filepath.Dir(dbDir) != dataDir {
		t.Errorf("database dir %s is not below %s", dbDir, dataDir)
	}
}
