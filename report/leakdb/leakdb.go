// Copyright 2025 Sonic Labs
// This file is part of Owl GPU Leakage Analyzer
//
// Owl is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Owl is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Owl. If not, see <http://www.gnu.org/licenses/>.

// Package leakdb provides an SQLite based store of leakage reports.
package leakdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/0xsoniclabs/owl/report"
	"github.com/jmoiron/sqlx"
	// Your main or test packages require this import so the sql package is properly initialized.
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQL statement for creating the report tables
	createSQL = `
PRAGMA journal_mode = MEMORY;
CREATE TABLE IF NOT EXISTS run (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created DATETIME DEFAULT CURRENT_TIMESTAMP,
	command TEXT,
	randCommand TEXT,
	times INTEGER,
	threshold FLOAT
);
CREATE TABLE IF NOT EXISTS kernelLeak (
	run INTEGER,
	ctx TEXT,
	kernel TEXT,
	fixNum INTEGER,
	rndNum INTEGER
);
CREATE TABLE IF NOT EXISTS flowLeak (
	run INTEGER,
	ctx TEXT,
	kernel TEXT,
	bb INTEGER,
	p FLOAT
);
CREATE TABLE IF NOT EXISTS memoryLeak (
	run INTEGER,
	ctx TEXT,
	kernel TEXT,
	instr INTEGER,
	bb INTEGER,
	p FLOAT
);
`

	insertRunSQL = `
INSERT INTO run (
	command, randCommand, times, threshold
) VALUES (
	?, ?, ?, ?
)
`

	insertKernelSQL = `
INSERT INTO kernelLeak (
	run, ctx, kernel, fixNum, rndNum
) VALUES (
	?, ?, ?, ?, ?
)
`

	insertFlowSQL = `
INSERT INTO flowLeak (
	run, ctx, kernel, bb, p
) VALUES (
	?, ?, ?, ?, ?
)
`

	insertMemorySQL = `
INSERT INTO memoryLeak (
	run, ctx, kernel, instr, bb, p
) VALUES (
	?, ?, ?, ?, ?, ?
)
`

	selectRunsSQL   = `SELECT id, created, command, randCommand, times, threshold FROM run ORDER BY id`
	selectRunSQL    = `SELECT id, created, command, randCommand, times, threshold FROM run WHERE id = ?`
	selectKernelSQL = `SELECT ctx, kernel, fixNum, rndNum FROM kernelLeak WHERE run = ?`
	selectFlowSQL   = `SELECT ctx, kernel, bb, p FROM flowLeak WHERE run = ?`
	selectMemorySQL = `SELECT ctx, kernel, instr, bb, p FROM memoryLeak WHERE run = ?`
)

// Run describes one leakage analysis stored in the database.
type Run struct {
	ID          int64     `db:"id"`
	Created     time.Time `db:"created"`
	Command     string    `db:"command"`
	RandCommand string    `db:"randCommand"`
	Times       int       `db:"times"`
	Threshold   float64   `db:"threshold"`
}

//go:generate mockgen -source leakdb.go -destination leakdb_mock.go -package leakdb
type LeakDB interface {
	// Save stores a report and returns the id of the new run.
	Save(run Run, r *report.Report) (int64, error)
	// Load restores the report of a run.
	Load(id int64) (*report.Report, error)
	// Run returns the description of a run.
	Run(id int64) (Run, error)
	// Runs lists all stored runs.
	Runs() ([]Run, error)
	Close() error
}

// leakDB is a report database backed by sqlite.
type leakDB struct {
	sql        *sqlx.DB
	runStmt    *sql.Stmt // Prepared insert statement for a run
	kernelStmt *sql.Stmt // Prepared insert statement for a kernel leak
	flowStmt   *sql.Stmt // Prepared insert statement for a control-flow leak
	memoryStmt *sql.Stmt // Prepared insert statement for a memory leak
}

// Open opens or creates the report database in dbFile.
func Open(dbFile string) (LeakDB, error) {
	sqlDB, err := sqlx.Open("sqlite3", dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %v; %v", dbFile, err)
	}
	db, err := newLeakDB(sqlDB)
	if err != nil {
		return nil, errors.Join(err, sqlDB.Close())
	}
	return db, nil
}

func newLeakDB(sqlDB *sqlx.DB) (*leakDB, error) {
	// create schema if not exists
	if _, err := sqlDB.Exec(createSQL); err != nil {
		return nil, fmt.Errorf("sqlDB.Exec, err: %q", err)
	}
	db := &leakDB{sql: sqlDB}
	var err error
	// prepare INSERT statements for subsequent use
	if db.runStmt, err = sqlDB.Prepare(insertRunSQL); err != nil {
		return nil, fmt.Errorf("failed to prepare a SQL statement for runs; %v", err)
	}
	if db.kernelStmt, err = sqlDB.Prepare(insertKernelSQL); err != nil {
		return nil, fmt.Errorf("failed to prepare a SQL statement for kernel leaks; %v", err)
	}
	if db.flowStmt, err = sqlDB.Prepare(insertFlowSQL); err != nil {
		return nil, fmt.Errorf("failed to prepare a SQL statement for flow leaks; %v", err)
	}
	if db.memoryStmt, err = sqlDB.Prepare(insertMemorySQL); err != nil {
		return nil, fmt.Errorf("failed to prepare a SQL statement for memory leaks; %v", err)
	}
	return db, nil
}

// Close closes the prepared statements and the database.
func (db *leakDB) Close() error {
	return errors.Join(
		db.runStmt.Close(),
		db.kernelStmt.Close(),
		db.flowStmt.Close(),
		db.memoryStmt.Close(),
		db.sql.Close(),
	)
}

// Save writes the run and all its findings in a single transaction.
func (db *leakDB) Save(run Run, r *report.Report) (int64, error) {
	tx, err := db.sql.Begin()
	if err != nil {
		return 0, err
	}
	id, err := db.save(tx, run, r)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction; %w", err)
	}
	return id, nil
}

func (db *leakDB) save(tx *sql.Tx, run Run, r *report.Report) (int64, error) {
	res, err := tx.Stmt(db.runStmt).Exec(run.Command, run.RandCommand, run.Times, run.Threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run; %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, k := range r.KernelLeak {
		if _, err := tx.Stmt(db.kernelStmt).Exec(id, k.Context, k.Kernel, k.Fixed, k.Random); err != nil {
			return 0, fmt.Errorf("failed to insert kernel leak; %w", err)
		}
	}
	for ctx, leaks := range r.FlowLeak {
		for _, f := range leaks {
			if _, err := tx.Stmt(db.flowStmt).Exec(id, ctx, f.Kernel, f.Block, f.P); err != nil {
				return 0, fmt.Errorf("failed to insert flow leak; %w", err)
			}
		}
	}
	for ctx, leaks := range r.MemoryLeak {
		for _, m := range leaks {
			if _, err := tx.Stmt(db.memoryStmt).Exec(id, ctx, m.Kernel, m.Instr, m.Block, m.P); err != nil {
				return 0, fmt.Errorf("failed to insert memory leak; %w", err)
			}
		}
	}
	return id, nil
}

type kernelRow struct {
	Context string `db:"ctx"`
	Kernel  string `db:"kernel"`
	Fixed   int    `db:"fixNum"`
	Random  int    `db:"rndNum"`
}

type flowRow struct {
	Context string  `db:"ctx"`
	Kernel  string  `db:"kernel"`
	Block   uint32  `db:"bb"`
	P       float64 `db:"p"`
}

type memoryRow struct {
	Context string  `db:"ctx"`
	Kernel  string  `db:"kernel"`
	Instr   uint64  `db:"instr"`
	Block   uint32  `db:"bb"`
	P       float64 `db:"p"`
}

// Load rebuilds the report of run id.
func (db *leakDB) Load(id int64) (*report.Report, error) {
	if _, err := db.Run(id); err != nil {
		return nil, err
	}

	var kernels []kernelRow
	if err := db.sql.Select(&kernels, selectKernelSQL, id); err != nil {
		return nil, fmt.Errorf("failed to select kernel leaks; %w", err)
	}
	var flows []flowRow
	if err := db.sql.Select(&flows, selectFlowSQL, id); err != nil {
		return nil, fmt.Errorf("failed to select flow leaks; %w", err)
	}
	var mems []memoryRow
	if err := db.sql.Select(&mems, selectMemorySQL, id); err != nil {
		return nil, fmt.Errorf("failed to select memory leaks; %w", err)
	}

	b := report.NewBuilder()
	for _, k := range kernels {
		b.AddKernelLeak(report.KernelLeak{Context: k.Context, Kernel: k.Kernel, Fixed: k.Fixed, Random: k.Random})
	}
	for _, f := range flows {
		b.AddFlowLeak(f.Context, report.FlowLeak{Kernel: f.Kernel, Block: f.Block, P: f.P})
	}
	for _, m := range mems {
		b.AddMemoryLeak(m.Context, report.MemoryLeak{Kernel: m.Kernel, Instr: m.Instr, Block: m.Block, P: m.P})
	}
	return b.Build(), nil
}

// Run returns the stored description of run id.
func (db *leakDB) Run(id int64) (Run, error) {
	var run Run
	if err := db.sql.Get(&run, selectRunSQL, id); err != nil {
		return Run{}, fmt.Errorf("failed to find run %d; %w", id, err)
	}
	return run, nil
}

// Runs lists all stored runs ordered by id.
func (db *leakDB) Runs() ([]Run, error) {
	var runs []Run
	if err := db.sql.Select(&runs, selectRunsSQL); err != nil {
		return nil, fmt.Errorf("failed to select runs; %w", err)
	}
	return runs, nil
}
