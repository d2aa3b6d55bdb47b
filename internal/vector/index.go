package vector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/viant/vec/search"
)

// Match is a single search result: an external id and its cosine
// similarity to the query, in [-1, 1].
type Match struct {
	ID         string  `json:"id"`
	Similarity float32 `json:"similarity"`
}

// FlatIndex is an exact nearest-neighbor store for one embedding space.
// Vectors are kept unit-normalized in a flat row-major slice so that
// inner product equals cosine similarity. Storage position i always
// corresponds to ids[i]; every operation that changes one changes the
// other under the same lock.
//
// All operations take a single exclusive lock for their full duration.
// Removal rebuilds the storage and is O(n*d) - the price of exact flat
// search without native deletion.
type FlatIndex struct {
	mu        sync.Mutex
	dim       int
	vectors   []float32 // row-major, len == dim * count
	ids       []string
	indexPath string
	idsPath   string
}

// indexFile is the on-disk representation of the vector storage. The id
// list is persisted separately as JSON; the two files are written by two
// separate calls and are not atomic as a pair.
type indexFile struct {
	Dim     int
	Vectors []float32
}

// New creates an empty index for the given dimension. Call LoadOrCreate
// to restore previously persisted state.
func New(dim int, indexPath, idsPath string) *FlatIndex {
	return &FlatIndex{
		dim:       dim,
		indexPath: indexPath,
		idsPath:   idsPath,
	}
}

// LoadOrCreate restores the index from its two companion files. Any
// missing, unreadable or inconsistent artifact leaves the index empty:
// this discards previously persisted vectors, so the fallback is logged
// as a warning rather than silently swallowed.
func (x *FlatIndex) LoadOrCreate() {
	x.mu.Lock()
	defer x.mu.Unlock()

	vectors, ids, err := readIndexFiles(x.indexPath, x.idsPath, x.dim)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: failed to load index from %s: %v, starting with empty index", x.indexPath, err)
		}
		x.vectors = nil
		x.ids = nil
		return
	}

	x.vectors = vectors
	x.ids = ids
	log.Printf("Loaded index %s with %d vectors (dim %d)", x.indexPath, len(ids), x.dim)
}

func readIndexFiles(indexPath, idsPath string, dim int) ([]float32, []string, error) {
	data, err := os.ReadFile(indexPath) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, nil, err
	}

	var file indexFile
	if err := decodeGob(data, &file); err != nil {
		return nil, nil, fmt.Errorf("decoding vector file: %w", err)
	}
	if file.Dim != dim {
		return nil, nil, fmt.Errorf("stored dimension %d does not match configured dimension %d", file.Dim, dim)
	}
	if dim > 0 && len(file.Vectors)%dim != 0 {
		return nil, nil, fmt.Errorf("vector data length %d is not a multiple of dimension %d", len(file.Vectors), dim)
	}

	idsData, err := os.ReadFile(idsPath) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, nil, err
	}

	var ids []string
	if err := json.Unmarshal(idsData, &ids); err != nil {
		return nil, nil, fmt.Errorf("decoding id list: %w", err)
	}
	if dim > 0 && len(ids) != len(file.Vectors)/dim {
		return nil, nil, fmt.Errorf("id list has %d entries but storage holds %d vectors", len(ids), len(file.Vectors)/dim)
	}

	return file.Vectors, ids, nil
}

// Save persists the vector storage and the ordered id list as two
// companion files. The two writes are separate calls, not an atomic
// pair; a crash between them leaves the artifacts inconsistent and the
// next LoadOrCreate falls back to an empty index.
func (x *FlatIndex) Save() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	data, err := encodeGob(indexFile{Dim: x.dim, Vectors: x.vectors})
	if err != nil {
		return fmt.Errorf("encoding vector file: %w", err)
	}
	if err := os.WriteFile(x.indexPath, data, 0600); err != nil {
		return fmt.Errorf("writing vector file: %w", err)
	}

	idsData, err := json.Marshal(x.ids)
	if err != nil {
		return fmt.Errorf("encoding id list: %w", err)
	}
	if err := os.WriteFile(x.idsPath, idsData, 0600); err != nil {
		return fmt.Errorf("writing id list: %w", err)
	}

	return nil
}

// Dim returns the configured embedding dimension.
func (x *FlatIndex) Dim() int {
	return x.dim
}

// Count returns the number of stored vectors.
func (x *FlatIndex) Count() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.ids)
}

// Insert stores a unit-normalized copy of vec under id. Re-inserting an
// existing id updates the stored vector in place rather than creating a
// second positional entry.
func (x *FlatIndex) Insert(id string, vec []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.insertLocked(id, vec)
}

// InsertBatch stores multiple vectors. The two slices must have the same
// length; nothing is inserted on a mismatch.
func (x *FlatIndex) InsertBatch(ids []string, vecs [][]float32) error {
	if len(ids) != len(vecs) {
		return fmt.Errorf("id count %d does not match vector count %d", len(ids), len(vecs))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i, vec := range vecs {
		if len(vec) != x.dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(vec), x.dim)
		}
	}
	for i, vec := range vecs {
		if err := x.insertLocked(ids[i], vec); err != nil {
			return err
		}
	}
	return nil
}

func (x *FlatIndex) insertLocked(id string, vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("vector has dimension %d, index expects %d", len(vec), x.dim)
	}

	normalized := normalize(vec)

	for i, existing := range x.ids {
		if existing == id {
			copy(x.vectors[i*x.dim:(i+1)*x.dim], normalized)
			return nil
		}
	}

	x.vectors = append(x.vectors, normalized...)
	x.ids = append(x.ids, id)
	return nil
}

// Remove deletes the vector stored under id. Returns false with no
// effect if the id is unknown. Rebuilds the flat storage without the
// removed row, which is O(n*d).
func (x *FlatIndex) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	pos := -1
	for i, existing := range x.ids {
		if existing == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}

	if len(x.ids) == 1 {
		x.vectors = nil
		x.ids = nil
		return true
	}

	rebuilt := make([]float32, 0, len(x.vectors)-x.dim)
	rebuilt = append(rebuilt, x.vectors[:pos*x.dim]...)
	rebuilt = append(rebuilt, x.vectors[(pos+1)*x.dim:]...)

	ids := make([]string, 0, len(x.ids)-1)
	ids = append(ids, x.ids[:pos]...)
	ids = append(ids, x.ids[pos+1:]...)

	x.vectors = rebuilt
	x.ids = ids
	return true
}

// Search returns up to k matches ordered by descending cosine
// similarity. The query is normalized before comparison. Returns an
// empty slice on an empty index; k larger than the stored count yields
// fewer results, never an error.
func (x *FlatIndex) Search(query []float32, k int) ([]Match, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), x.dim)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	count := len(x.ids)
	if count == 0 || k <= 0 {
		return []Match{}, nil
	}
	if k > count {
		k = count
	}

	q := search.Float32s(normalize(query))

	matches := make([]Match, count)
	for i := 0; i < count; i++ {
		row := x.vectors[i*x.dim : (i+1)*x.dim]
		// Stored vectors and the query are unit-normalized, so both
		// magnitudes are 1 and cosine distance is 1 - dot product.
		// Despite its name, CosineDistanceWithMagnitudesNeon is the
		// exported precomputed-magnitude variant on non-arm64 builds.
		sim := 1 - q.CosineDistanceWithMagnitudesNeon(row, 1, 1)
		matches[i] = Match{ID: x.ids[i], Similarity: sim}
	}

	// Stable sort keeps ties in insertion order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches[:k], nil
}

// Embedding returns a copy of the stored (normalized) vector for id.
func (x *FlatIndex) Embedding(id string) ([]float32, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, existing := range x.ids {
		if existing == id {
			out := make([]float32, x.dim)
			copy(out, x.vectors[i*x.dim:(i+1)*x.dim])
			return out, true
		}
	}
	return nil, false
}

// IDs returns a copy of the id list in storage order.
func (x *FlatIndex) IDs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]string, len(x.ids))
	copy(out, x.ids)
	return out
}

// Reset discards all stored vectors, leaving an empty index.
func (x *FlatIndex) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = nil
	x.ids = nil
}

// normalize returns a unit-L2-normalized copy of vec. A zero vector is
// returned unchanged since it has no direction.
func normalize(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)

	mag := search.Float32s(out).Magnitude()
	if mag == 0 {
		return out
	}
	for i := range out {
		out[i] /= mag
	}
	return out
}
