// Package kvstore implements the keyed blob store reader described as an
// external collaborator in spec.md §6: random or linear access over a
// single memory-mapped data blob, addressed by a small sidecar index
// file of (key, offset, length) triples.
//
// The store is the idiomatic-Go analogue of MMseqs2's DBReader/DBWriter.
// Random-access lookup uses github.com/dgryski/go-farm (already a
// teacher dependency, used the same way in fusion/kmer_index.go's
// hashKmer) to drive an open-addressing probe table, directly modeled on
// kmerIndexShard's linear-probing design in that file.
package kvstore

import (
	"bufio"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	farm "github.com/dgryski/go-farm"
	"github.com/edsrzf/mmap-go"
	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"
)

// DbType distinguishes the residue alphabet a store's sequences are
// encoded in. The engine does not consult it; cmd/alignbykmer passes the
// same type, chosen by --nucleotide, to every store it opens.
type DbType int

const (
	// Amino is a protein sequence database.
	Amino DbType = iota
	// Nucleotide is a nucleotide sequence database.
	Nucleotide
)

// AccessMode selects how a Reader indexes its entries.
type AccessMode int

const (
	// Random supports GetID (key -> internal id) lookups, for query and
	// target databases addressed by db key.
	Random AccessMode = iota
	// Linear only supports sequential traversal by internal id, for the
	// prefilter result stream, matching DBReader::LINEAR_ACCCESS.
	Linear
)

type entry struct {
	key    uint32
	offset int64
	length int64
}

// Reader provides random or linear access over a keyed blob store. It is
// safe for concurrent GetData/GetID calls from multiple workers once
// opened; Open/Close/RemapData are not concurrency-safe with readers in
// flight (callers must quiesce workers across a RemapData call, matching
// spec.md §5's window-boundary remap).
type Reader struct {
	path    string
	mode    AccessMode
	dbType  DbType
	mapping mmap.MMap
	data    []byte
	entries []entry
	idTable probeTable
}

// Open memory-maps path and loads path+".index" (key, offset, length)
// triples, in NOSORT order: internal ids are assigned in index-file line
// order, matching DBReader<unsigned int>::NOSORT.
//
// A path ending in ".gz" is treated as a gzip-compressed data blob
// (klauspost/compress/gzip), for stores that are written once, read
// sequentially, and worth shrinking on disk — typically the prefilter
// result database. The index's offsets are interpreted against the
// decompressed byte stream, which is pulled fully into heap memory
// rather than mmapped, since a compressed file offers no mmap-seekable
// random access. Only Linear-mode readers may open a ".gz" path: Random
// mode needs true random access into the underlying file, which
// compression precludes.
func Open(path string, mode AccessMode, dbType DbType) (*Reader, error) {
	entries, err := readIndex(path + ".index")
	if err != nil {
		return nil, err
	}
	r := &Reader{path: path, mode: mode, dbType: dbType, entries: entries}

	if strings.HasSuffix(path, ".gz") {
		if mode != Linear {
			return nil, errors.E("kvstore: compressed stores only support linear access", path)
		}
		data, err := readGzip(path)
		if err != nil {
			return nil, err
		}
		r.data = data
		return r, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "kvstore: open data file", path)
	}
	defer f.Close() // nolint: errcheck

	if st, statErr := f.Stat(); statErr == nil && st.Size() > 0 {
		m, mmapErr := mmap.Map(f, mmap.RDONLY, 0)
		if mmapErr != nil {
			return nil, errors.E(mmapErr, "kvstore: mmap", path)
		}
		r.mapping = m
		r.data = []byte(m)
	}
	if mode == Random {
		r.idTable = buildProbeTable(entries)
	}
	return r, nil
}

func readGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "kvstore: open compressed data file", path)
	}
	defer f.Close() // nolint: errcheck

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.E(err, "kvstore: open gzip stream", path)
	}
	defer zr.Close() // nolint: errcheck

	data, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, errors.E(err, "kvstore: decompress", path)
	}
	return data, nil
}

func readIndex(path string) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "kvstore: open index file", path)
	}
	defer f.Close() // nolint: errcheck

	var entries []entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errors.E("kvstore: malformed index line", path, line)
		}
		key, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, errors.E(err, "kvstore: bad key in index", path, line)
		}
		offset, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, errors.E(err, "kvstore: bad offset in index", path, line)
		}
		length, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, errors.E(err, "kvstore: bad length in index", path, line)
		}
		entries = append(entries, entry{key: uint32(key), offset: offset, length: length})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "kvstore: read index", path)
	}
	return entries, nil
}

// Size returns the number of records (the ids are [0, Size())).
func (r *Reader) Size() int { return len(r.entries) }

// DataSize returns the total byte length of all records, used as the
// E-value computation's total-residues input.
func (r *Reader) DataSize() int64 {
	var total int64
	for _, e := range r.entries {
		total += e.length
	}
	return total
}

// GetDbtype returns the store's residue alphabet kind.
func (r *Reader) GetDbtype() DbType { return r.dbType }

// GetDbKey returns the db key for an internal id.
func (r *Reader) GetDbKey(internalID int) uint32 { return r.entries[internalID].key }

// GetID resolves a db key to its internal id. Only valid on Random-mode
// readers.
func (r *Reader) GetID(dbKey uint32) (int, bool) {
	return r.idTable.lookup(dbKey)
}

// GetData returns the raw record bytes for an internal id, as a slice
// directly into the memory-mapped region (no copy).
func (r *Reader) GetData(internalID int) []byte {
	e := r.entries[internalID]
	return r.data[e.offset : e.offset+e.length]
}

// ReadMmapedDataInMemory copies the whole mapped region into a
// heap-owned buffer so subsequent GetData calls never fault the backing
// file in, matching DBReader::readMmapedDataInMemory()'s effect
// (pre-warming the working set for random access).
func (r *Reader) ReadMmapedDataInMemory() error {
	if r.data == nil {
		return nil
	}
	owned := make([]byte, len(r.data))
	copy(owned, r.data)
	r.data = owned
	if r.mapping != nil {
		err := r.mapping.Unmap()
		r.mapping = nil
		if err != nil {
			return errors.E(err, "kvstore: unmap", r.path)
		}
	}
	return nil
}

// RemapData drops and re-establishes the memory mapping, releasing page
// cache pressure between flush windows (spec.md §5's "prefilter backing
// map may be reissued to free page cache"). It is a no-op for readers
// whose data was already pulled fully into heap memory via
// ReadMmapedDataInMemory.
func (r *Reader) RemapData() error {
	if r.mapping == nil {
		return nil
	}
	if err := r.mapping.Unmap(); err != nil {
		return errors.E(err, "kvstore: unmap", r.path)
	}
	f, err := os.Open(r.path)
	if err != nil {
		return errors.E(err, "kvstore: reopen", r.path)
	}
	defer f.Close() // nolint: errcheck
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return errors.E(err, "kvstore: remap", r.path)
	}
	r.mapping = m
	r.data = []byte(m)
	return nil
}

// Close releases the memory mapping.
func (r *Reader) Close() error {
	if r.mapping == nil {
		return nil
	}
	err := r.mapping.Unmap()
	r.mapping = nil
	r.data = nil
	if err != nil {
		return errors.E(err, "kvstore: close", r.path)
	}
	return nil
}

// probeTable is a linear-probing open-addressing hash table mapping db
// key -> internal id, modeled on fusion/kmer_index.go's kmerIndexShard.
type probeTable struct {
	slots []probeSlot
	mask  uint64
}

type probeSlot struct {
	key   uint32
	id    int32
	valid bool
}

func buildProbeTable(entries []entry) probeTable {
	size := uint64(1)
	for size < uint64(len(entries))*2+1 {
		size *= 2
	}
	t := probeTable{slots: make([]probeSlot, size), mask: size - 1}
	for id, e := range entries {
		h := farm.Hash64WithSeed(keyBytes(e.key), 0) & t.mask
		for t.slots[h].valid {
			h = (h + 1) & t.mask
		}
		t.slots[h] = probeSlot{key: e.key, id: int32(id), valid: true}
	}
	return t
}

func (t probeTable) lookup(key uint32) (int, bool) {
	if len(t.slots) == 0 {
		return 0, false
	}
	h := farm.Hash64WithSeed(keyBytes(key), 0) & t.mask
	for i := uint64(0); i <= t.mask; i++ {
		s := t.slots[h]
		if !s.valid {
			return 0, false
		}
		if s.key == key {
			return int(s.id), true
		}
		h = (h + 1) & t.mask
	}
	return 0, false
}

func keyBytes(key uint32) []byte {
	return []byte{byte(key), byte(key >> 8), byte(key >> 16), byte(key >> 24)}
}
