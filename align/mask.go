// Copyright 2026 the hapalign authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package align

// ReadMasker replaces every base outside a fixed alphabet with 'X', so that
// low-quality or ambiguous bases can never match graph sequence.  A masker
// is immutable after construction and safe for concurrent use.
type ReadMasker struct {
	table [256]byte
}

// NewReadMasker returns a masker that preserves the bases of valid and
// replaces everything else, including lower-case bases, with 'X'.
func NewReadMasker(valid string) *ReadMasker {
	m := new(ReadMasker)
	for i := range m.table {
		m.table[i] = 'X'
	}
	for i := 0; i < len(valid); i++ {
		m.table[valid[i]] = valid[i]
	}
	return m
}

// Mask masks sequence in place.
func (m *ReadMasker) Mask(sequence []byte) {
	for i, c := range sequence {
		sequence[i] = m.table[c]
	}
}

// Masked returns a masked copy of sequence, leaving the input untouched.
func (m *ReadMasker) Masked(sequence []byte) []byte {
	out := make([]byte, len(sequence))
	for i, c := range sequence {
		out[i] = m.table[c]
	}
	return out
}
