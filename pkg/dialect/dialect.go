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

// Package dialect describes the hardware families a datapath may declare and the
// pipeline limits each one imposes.
package dialect

import (
	"errors"
	"fmt"
	"sort"

	"github.com/carverauto/sdngauge/pkg/datapath"
)

var (
	// ErrUnknownDialect is returned for a hardware tag nobody registered.
	ErrUnknownDialect = errors.New("unknown hardware dialect")
	// ErrUnsupported marks a device whose pipeline does not fit its dialect.
	ErrUnsupported = errors.New("datapath not supported by dialect")
)

// maxPriority is the largest OpenFlow flow priority.
const maxPriority = 0xffff

// Dialect is one hardware family.
type Dialect struct {
	Name string
	// Tables is the number of flow tables the pipeline exposes.
	Tables int
	// FixedPipeline is set for switches that need a table type pattern pushed
	// before the pipeline can be used.
	FixedPipeline bool
}

// Table maps hardware tags to dialects.
type Table struct {
	dialects map[string]Dialect
}

func NewTable() *Table {
	return &Table{dialects: make(map[string]Dialect)}
}

// Default returns the table of supported hardware families.
func Default() *Table {
	t := NewTable()

	for _, d := range []Dialect{
		{Name: datapath.DefaultHardware, Tables: 254},
		{Name: "Allied-Telesis", Tables: 10},
		{Name: "NoviFlow", Tables: 60},
		{Name: "Aruba", Tables: 12, FixedPipeline: true},
		{Name: "Netronome", Tables: 254},
		{Name: "ZodiacFX", Tables: 10},
		{Name: "GenericTFM", Tables: 254, FixedPipeline: true},
	} {
		t.Register(d)
	}

	return t
}

// Register adds d, replacing any dialect with the same name.
func (t *Table) Register(d Dialect) {
	t.dialects[d.Name] = d
}

// Lookup returns the dialect registered under name.
func (t *Table) Lookup(name string) (Dialect, error) {
	d, ok := t.dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}

	return d, nil
}

func (t *Table) Names() []string {
	names := make([]string, 0, len(t.dialects))
	for name := range t.dialects {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Check resolves the dialect of dp and verifies that its derived tables and
// priorities fit.
func (t *Table) Check(dp *datapath.Device) (Dialect, error) {
	d, err := t.Lookup(dp.Hardware)
	if err != nil {
		return Dialect{}, err
	}

	last := max(dp.VLANTable, dp.ACLTable, dp.EthSrcTable, dp.IPv4FIBTable,
		dp.IPv6FIBTable, dp.EthDstTable, dp.FloodTable)

	if last >= d.Tables {
		return d, fmt.Errorf("%w: dp %s uses table %d, %s has %d tables",
			ErrUnsupported, dp, last, d.Name, d.Tables)
	}

	if dp.HighestPriority > maxPriority {
		return d, fmt.Errorf("%w: dp %s highest priority %d exceeds %d",
			ErrUnsupported, dp, dp.HighestPriority, maxPriority)
	}

	return d, nil
}
