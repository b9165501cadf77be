/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metricstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Batcher sends a batch of queued statements. *pgxpool.Pool implements it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresWriter inserts points into a (time, measurement, tags, value) table,
// typically a TimescaleDB hypertable.
type PostgresWriter struct {
	db     Batcher
	insert string
	close  func()
}

// NewPostgresWriter returns a writer that inserts into table through db.
func NewPostgresWriter(db Batcher, table string) *PostgresWriter {
	return &PostgresWriter{
		db: db,
		insert: fmt.Sprintf("INSERT INTO %s (time, measurement, tags, value) VALUES ($1, $2, $3, $4)",
			pgx.Identifier{table}.Sanitize()),
	}
}

// OpenPostgres creates a connection pool for dsn. Connections are established on
// first use.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresWriter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	w := NewPostgresWriter(pool, table)
	w.close = pool.Close

	return w, nil
}

func (w *PostgresWriter) Write(ctx context.Context, points []Point) error {
	batch := &pgx.Batch{}

	for _, p := range points {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags of %s: %w", p.Measurement, err)
		}

		batch.Queue(w.insert, p.Time, p.Measurement, tags, p.Value)
	}

	return sendBatchExecAll(ctx, batch, w.db.SendBatch, "gauge samples")
}

func (w *PostgresWriter) Close() error {
	if w.close != nil {
		w.close()
	}

	return nil
}

func sendBatchExecAll(ctx context.Context, batch *pgx.Batch, send func(context.Context, *pgx.Batch) pgx.BatchResults, operation string) (err error) {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	br := send(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s batch close: %w", operation, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("%s batch exec (command %d): %w", operation, i, err)
		}
	}

	return nil
}
