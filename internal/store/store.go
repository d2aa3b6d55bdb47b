// Package store defines the relational persistence layer for photos,
// detections, faces and person clusters. Lookups for unknown ids return
// (nil, nil) rather than an error; callers treat nil as not found.
package store

import (
	"context"
)

// PhotoStore provides access to photo records and their detections.
type PhotoStore interface {
	// CreatePhoto stores a new photo record.
	CreatePhoto(ctx context.Context, photo *Photo) error
	// Photo retrieves a photo with its detections and faces, nil if not found.
	Photo(ctx context.Context, id string) (*Photo, error)
	// Photos lists photos ordered by upload time descending.
	Photos(ctx context.Context, limit, offset int) ([]Photo, error)
	// UpdatePhotoStatus records the outcome of the processing pipeline.
	UpdatePhotoStatus(ctx context.Context, id string, processed bool, processingError string) error
	// SetClipEmbedding stores the photo's semantic embedding.
	SetClipEmbedding(ctx context.Context, id string, embedding []float32) error
	// SetFavorite flags or unflags a photo as favorite.
	SetFavorite(ctx context.Context, id string, favorite bool) error
	// DeletePhoto removes a photo and all dependent detections and faces.
	// Returns the ids of the deleted faces for index cleanup.
	DeletePhoto(ctx context.Context, id string) ([]string, error)
	// AddDetections stores object-detection results for a photo.
	AddDetections(ctx context.Context, photoID string, detections []Detection) error
	// Categories aggregates detections by class: detection count plus
	// distinct photo ids, most detected class first.
	Categories(ctx context.Context) ([]Category, error)
	// PhotosByClass returns photos with at least one detection of the
	// class, newest first.
	PhotosByClass(ctx context.Context, className string) ([]Photo, error)
	// CountDetections returns the total number of stored detections.
	CountDetections(ctx context.Context) (int, error)
	// CountCategories returns the number of distinct detection classes.
	CountCategories(ctx context.Context) (int, error)
	// TotalFileSize returns the summed byte size of all stored originals.
	TotalFileSize(ctx context.Context) (int64, error)
	// PhotosWithClipEmbeddings returns all photos that have a stored
	// semantic embedding, ordered by upload time then id.
	PhotosWithClipEmbeddings(ctx context.Context) ([]Photo, error)
	// CountPhotos returns the total number of photos.
	CountPhotos(ctx context.Context) (int, error)
	// CountFavorites returns the number of favorite photos.
	CountFavorites(ctx context.Context) (int, error)
}

// FaceStore provides access to face records.
type FaceStore interface {
	// CreateFace stores a new face record.
	CreateFace(ctx context.Context, face *Face) error
	// Face retrieves a face by id, nil if not found.
	Face(ctx context.Context, id string) (*Face, error)
	// FacesByCluster returns all faces currently assigned to a cluster.
	FacesByCluster(ctx context.Context, clusterID string) ([]Face, error)
	// FacesByPhoto returns all faces detected in a photo.
	FacesByPhoto(ctx context.Context, photoID string) ([]Face, error)
	// FacesWithEmbeddings returns all faces that carry an embedding,
	// ordered by creation time then id. Reclustering depends on this
	// order being deterministic.
	FacesWithEmbeddings(ctx context.Context) ([]Face, error)
	// SetFaceCluster assigns a face to a cluster; an empty clusterID
	// clears the assignment.
	SetFaceCluster(ctx context.Context, faceID, clusterID string) error
	// ReassignCluster moves every face from one cluster to another.
	ReassignCluster(ctx context.Context, fromClusterID, toClusterID string) error
	// ClearClusterAssignments removes the cluster assignment from all faces.
	ClearClusterAssignments(ctx context.Context) error
	// CountFaces returns the total number of faces.
	CountFaces(ctx context.Context) (int, error)
}

// ClusterStore provides access to person clusters.
type ClusterStore interface {
	// CreateCluster stores a new cluster.
	CreateCluster(ctx context.Context, cluster *Cluster) error
	// Cluster retrieves a cluster by id, nil if not found.
	Cluster(ctx context.Context, id string) (*Cluster, error)
	// Clusters lists all clusters with face counts, largest first.
	Clusters(ctx context.Context) ([]Cluster, error)
	// ClustersByName returns clusters whose normalized name matches the
	// normalized input (lowercase, diacritics folded, dashes to spaces).
	ClustersByName(ctx context.Context, name string) ([]Cluster, error)
	// RenameCluster sets the user-assigned name.
	RenameCluster(ctx context.Context, id, name string) error
	// UpdateCentroid replaces the cluster centroid.
	UpdateCentroid(ctx context.Context, id string, centroid []float32) error
	// DeleteCluster removes a cluster; member faces keep existing but
	// lose their assignment.
	DeleteCluster(ctx context.Context, id string) error
	// DeleteAllClusters removes every cluster.
	DeleteAllClusters(ctx context.Context) error
	// PhotoIDsByCluster returns distinct photo ids with faces in a cluster.
	PhotoIDsByCluster(ctx context.Context, clusterID string) ([]string, error)
	// CountClusters returns the total number of clusters.
	CountClusters(ctx context.Context) (int, error)
}

// Store is the combined persistence interface implemented by each backend.
type Store interface {
	PhotoStore
	FaceStore
	ClusterStore

	Close() error
}
