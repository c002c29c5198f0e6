package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/tuning"
	"autocraft.ai/internal/sim/world"
)

// SQLiteIndex is a secondary, queryable index of crafting attempts, signal
// changes and snapshots. Writes are queued and applied by one goroutine in
// batched transactions; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropCraft    atomic.Uint64
	dropSignal   atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqCraft reqKind = iota + 1
	reqSignal
	reqSnapshot
)

type req struct {
	kind reqKind

	craft    world.CraftEntry
	signal   world.SignalEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick       uint64
	Path       string
	Blocks     int
	Containers int
	Hoppers    int
	Frames     int
	Switches   int
}

// Stats reports queue usage and dropped writes.
type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropCraftTotal    uint64 `json:"drop_craft_total"`
	DropSignalTotal   uint64 `json:"drop_signal_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

// CraftRow is one indexed crafting attempt.
type CraftRow struct {
	Tick      uint64 `json:"tick"`
	AttemptID string `json:"attempt_id"`
	Anchor    [3]int `json:"anchor"`
	Target    string `json:"target"`
	RecipeID  string `json:"recipe_id,omitempty"`
	OK        bool   `json:"ok"`
	Code      string `json:"code,omitempty"`
	State     string `json:"state"`
	Consumed  string `json:"consumed_json"`
	Produced  string `json:"produced_json"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS crafts (
			attempt_id TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			target TEXT NOT NULL,
			recipe_id TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT NOT NULL,
			state TEXT NOT NULL,
			consumed_json TEXT NOT NULL,
			produced_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_crafts_tick ON crafts(tick);`,
		`CREATE INDEX IF NOT EXISTS idx_crafts_pos_tick ON crafts(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS signals (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			on_state INTEGER NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			blocks INTEGER NOT NULL,
			containers INTEGER NOT NULL,
			hoppers INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			switches INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropCraftTotal:    s.dropCraft.Load(),
		DropSignalTotal:   s.dropSignal.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteCraft(entry world.CraftEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqCraft, craft: entry}:
	default:
		s.dropCraft.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteSignal(entry world.SignalEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqSignal, signal: entry}:
	default:
		s.dropSignal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:       snap.Header.Tick,
		Path:       path,
		Blocks:     len(snap.Blocks),
		Containers: len(snap.Containers),
		Hoppers:    len(snap.Hoppers),
		Frames:     len(snap.Frames),
		Switches:   len(snap.Switches),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("blocks_defs", filepath.Join(configDir, "blocks.json"))
		read("items_defs", filepath.Join(configDir, "items.json"))
		read("recipes", filepath.Join(configDir, "recipes.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["blocks_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	if b := raw["items_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}
	if b := raw["recipes"]; len(b) > 0 {
		rows = append(rows, kv{name: "recipes", digest: cats.Recipes.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		rows = append(rows, kv{name: "tuning", digest: tune.Digest(), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentCrafts returns up to limit attempts, newest first, from the index at path.
func RecentCrafts(ctx context.Context, path string, limit int) ([]CraftRow, error) {
	if limit <= 0 {
		limit = 20
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT tick,attempt_id,x,y,z,target,recipe_id,ok,code,state,consumed_json,produced_json
		FROM crafts ORDER BY tick DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CraftRow
	for rows.Next() {
		var (
			r    CraftRow
			tick int64
			ok   int
		)
		if err := rows.Scan(&tick, &r.AttemptID, &r.Anchor[0], &r.Anchor[1], &r.Anchor[2], &r.Target, &r.RecipeID, &ok, &r.Code, &r.State, &r.Consumed, &r.Produced); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.OK = ok != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertCraft, _ := s.db.Prepare(`INSERT OR REPLACE INTO crafts(attempt_id,tick,x,y,z,target,recipe_id,ok,code,state,consumed_json,produced_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSignal, _ := s.db.Prepare(`INSERT OR REPLACE INTO signals(tick,seq,x,y,z,on_state) VALUES(?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,blocks,containers,hoppers,frames,switches) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertCraft, insertSignal, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = 2 * time.Second

		lastSignalTick uint64
		signalSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqCraft:
			c := r.craft
			consumed, _ := json.Marshal(c.Consumed)
			produced, _ := json.Marshal(c.Produced)
			ok := 0
			if c.OK {
				ok = 1
			}
			exec(insertCraft,
				c.AttemptID,
				int64(c.Tick),
				c.Anchor[0], c.Anchor[1], c.Anchor[2],
				c.Target,
				c.RecipeID,
				ok,
				c.Code,
				c.State,
				string(consumed),
				string(produced),
			)

		case reqSignal:
			sg := r.signal
			if sg.Tick != lastSignalTick {
				lastSignalTick = sg.Tick
				signalSeq = 0
			}
			seq := signalSeq
			signalSeq++
			on := 0
			if sg.On {
				on = 1
			}
			exec(insertSignal, int64(sg.Tick), seq, sg.Pos[0], sg.Pos[1], sg.Pos[2], on)

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.Blocks, sn.Containers, sn.Hoppers, sn.Frames, sn.Switches)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
