// Package cluster implements online greedy face clustering: each new
// face embedding either joins the cluster of its most similar indexed
// neighbor or starts a cluster of its own. This is single-pass greedy
// assignment, not global-optimum clustering; the resulting partition
// depends on the order faces are processed in.
package cluster

import (
	"context"
	"fmt"
	"log"

	"github.com/smartgallery/backend/internal/store"
	"github.com/smartgallery/backend/internal/vector"
)

// neighborCount is how many nearest faces are considered per assignment.
const neighborCount = 10

// DefaultSimilarityThreshold is the minimum cosine similarity for a
// face to join an existing cluster.
const DefaultSimilarityThreshold = 0.6

// Engine maintains the partition of faces into person clusters.
//
// The engine holds no lock across its multi-step read-modify-write
// sequences (index search, cluster lookup, assignment write, centroid
// recompute). Two pipelines assigning very similar faces concurrently
// can each miss the other's uncommitted cluster and create duplicate
// singletons for the same person; merge exists to repair exactly that.
type Engine struct {
	faces     store.FaceStore
	clusters  store.ClusterStore
	index     *vector.FlatIndex
	threshold float32
}

// New creates a clustering engine over the face index and the given
// stores. A zero threshold falls back to DefaultSimilarityThreshold.
func New(faces store.FaceStore, clusters store.ClusterStore, index *vector.FlatIndex, threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Engine{
		faces:     faces,
		clusters:  clusters,
		index:     index,
		threshold: float32(threshold),
	}
}

// AssignFaceToCluster attaches a face to the cluster of its most
// similar already-clustered neighbor, or creates a new singleton
// cluster when no neighbor reaches the similarity threshold. The face's
// embedding is expected to already be in the face index; the face
// itself showing up as its own nearest neighbor is harmless since it
// has no cluster yet. Returns the cluster id the face ended up in.
func (e *Engine) AssignFaceToCluster(ctx context.Context, face *store.Face, embedding []float32) (string, error) {
	matches, err := e.index.Search(embedding, neighborCount)
	if err != nil {
		return "", fmt.Errorf("searching face index: %w", err)
	}

	if len(matches) == 0 {
		return e.createCluster(ctx, face, embedding)
	}

	bestClusterID := ""
	var bestSimilarity float32

	for _, m := range matches {
		if m.Similarity < e.threshold {
			continue
		}

		neighbor, err := e.faces.Face(ctx, m.ID)
		if err != nil {
			return "", fmt.Errorf("looking up face %s: %w", m.ID, err)
		}
		if neighbor == nil || neighbor.ClusterID == "" {
			continue
		}

		// Strictly greater keeps the first qualifying cluster on ties,
		// so the outcome follows neighbor return order.
		if m.Similarity > bestSimilarity {
			bestClusterID = neighbor.ClusterID
			bestSimilarity = m.Similarity
		}
	}

	if bestClusterID == "" {
		return e.createCluster(ctx, face, embedding)
	}

	if err := e.faces.SetFaceCluster(ctx, face.ID, bestClusterID); err != nil {
		return "", fmt.Errorf("assigning face %s to cluster %s: %w", face.ID, bestClusterID, err)
	}
	face.ClusterID = bestClusterID

	if err := e.RecomputeCentroid(ctx, bestClusterID); err != nil {
		return "", err
	}

	return bestClusterID, nil
}

// createCluster starts a new singleton cluster for a face. The centroid
// is the face's own embedding and the representative photo is the
// face's photo, set once and never recomputed.
func (e *Engine) createCluster(ctx context.Context, face *store.Face, embedding []float32) (string, error) {
	cluster := &store.Cluster{
		Centroid:              append([]float32(nil), embedding...),
		RepresentativePhotoID: face.PhotoID,
	}
	if err := e.clusters.CreateCluster(ctx, cluster); err != nil {
		return "", fmt.Errorf("creating cluster: %w", err)
	}

	if err := e.faces.SetFaceCluster(ctx, face.ID, cluster.ID); err != nil {
		return "", fmt.Errorf("assigning face %s to new cluster %s: %w", face.ID, cluster.ID, err)
	}
	face.ClusterID = cluster.ID

	return cluster.ID, nil
}

// RecomputeCentroid replaces a cluster's centroid with the arithmetic
// mean of the embeddings of all current members, re-fetched from the
// store. A cluster whose members carry no embeddings keeps its previous
// centroid.
func (e *Engine) RecomputeCentroid(ctx context.Context, clusterID string) error {
	faces, err := e.faces.FacesByCluster(ctx, clusterID)
	if err != nil {
		return fmt.Errorf("fetching members of cluster %s: %w", clusterID, err)
	}

	var sum []float32
	count := 0
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(f.Embedding))
		}
		for i, v := range f.Embedding {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}

	for i := range sum {
		sum[i] /= float32(count)
	}

	if err := e.clusters.UpdateCentroid(ctx, clusterID, sum); err != nil {
		return fmt.Errorf("updating centroid of cluster %s: %w", clusterID, err)
	}
	return nil
}

// MergeClusters moves every face of absorbID into keepID, deletes the
// absorbed cluster and recomputes the surviving centroid. The absorbed
// faces' embeddings stay in the index under their original ids, so no
// index churn happens on merge.
func (e *Engine) MergeClusters(ctx context.Context, keepID, absorbID string) (string, error) {
	if err := e.faces.ReassignCluster(ctx, absorbID, keepID); err != nil {
		return "", fmt.Errorf("reassigning faces from cluster %s: %w", absorbID, err)
	}

	if err := e.clusters.DeleteCluster(ctx, absorbID); err != nil {
		return "", fmt.Errorf("deleting cluster %s: %w", absorbID, err)
	}

	if err := e.RecomputeCentroid(ctx, keepID); err != nil {
		return "", err
	}

	log.Printf("Merged cluster %s into %s", absorbID, keepID)
	return keepID, nil
}

// SplitFaceToNewCluster detaches a face from its current cluster and
// gives it a fresh singleton cluster. The old cluster's centroid is
// recomputed from its remaining members; a cluster left with zero
// members is deleted.
func (e *Engine) SplitFaceToNewCluster(ctx context.Context, faceID string) (string, error) {
	face, err := e.faces.Face(ctx, faceID)
	if err != nil {
		return "", fmt.Errorf("looking up face %s: %w", faceID, err)
	}
	if face == nil || len(face.Embedding) == 0 {
		return "", fmt.Errorf("face %s not found or has no embedding", faceID)
	}

	oldClusterID := face.ClusterID

	newClusterID, err := e.createCluster(ctx, face, face.Embedding)
	if err != nil {
		return "", err
	}

	if oldClusterID != "" && oldClusterID != newClusterID {
		remaining, err := e.faces.FacesByCluster(ctx, oldClusterID)
		if err != nil {
			return "", fmt.Errorf("fetching members of cluster %s: %w", oldClusterID, err)
		}
		if len(remaining) == 0 {
			if err := e.clusters.DeleteCluster(ctx, oldClusterID); err != nil {
				return "", fmt.Errorf("deleting empty cluster %s: %w", oldClusterID, err)
			}
		} else if err := e.RecomputeCentroid(ctx, oldClusterID); err != nil {
			return "", err
		}
	}

	return newClusterID, nil
}

// ReclusterAll rebuilds the entire partition from scratch: every
// assignment is cleared, every cluster deleted, the face index reset
// and rebuilt, and each face re-assigned one by one. Faces are
// processed in (creation time, id) order, so repeated runs over the
// same data produce the same partition.
//
// This is an unbounded blocking batch operation with no checkpointing;
// a crash partway through requires running it again from the start.
// The progress callback may be nil.
func (e *Engine) ReclusterAll(ctx context.Context, progress func(done, total int)) (int, error) {
	faces, err := e.faces.FacesWithEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching faces: %w", err)
	}
	if len(faces) == 0 {
		log.Printf("No faces to cluster")
		return 0, nil
	}

	log.Printf("Starting full reclustering of %d faces", len(faces))

	if err := e.faces.ClearClusterAssignments(ctx); err != nil {
		return 0, fmt.Errorf("clearing cluster assignments: %w", err)
	}
	if err := e.clusters.DeleteAllClusters(ctx); err != nil {
		return 0, fmt.Errorf("deleting clusters: %w", err)
	}
	e.index.Reset()

	for i := range faces {
		face := &faces[i]
		if err := e.index.Insert(face.ID, face.Embedding); err != nil {
			return i, fmt.Errorf("indexing face %s: %w", face.ID, err)
		}
		if _, err := e.AssignFaceToCluster(ctx, face, face.Embedding); err != nil {
			return i, fmt.Errorf("assigning face %s: %w", face.ID, err)
		}
		if progress != nil {
			progress(i+1, len(faces))
		}
	}

	log.Printf("Reclustering complete: %d faces processed", len(faces))
	return len(faces), nil
}
