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

// Package dna provides small helpers for working with DNA base sequences.
package dna

var complement = func() [256]byte {
	var table [256]byte
	for i := range table {
		table[i] = 'X'
	}
	table['A'], table['C'], table['G'], table['T'] = 'T', 'G', 'C', 'A'
	table['a'], table['c'], table['g'], table['t'] = 't', 'g', 'c', 'a'
	return table
}()

// Complement returns the complement of a single base.  Characters outside the
// ACGT alphabet complement to 'X'.
func Complement(base byte) byte {
	return complement[base]
}

// ReverseComplement returns the reverse complement of sequence as a new slice.
func ReverseComplement(sequence []byte) []byte {
	result := make([]byte, len(sequence))
	for i, base := range sequence {
		result[len(sequence)-1-i] = complement[base]
	}
	return result
}
