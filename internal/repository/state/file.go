package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/med-alarm/internal/config"
	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	pb "github.com/oshokin/med-alarm/internal/pb/v1"
)

// Repository defines persistence operations for the alarm snapshot.
type Repository interface {
	Load(ctx context.Context) (*domain.State, error)
	Save(ctx context.Context, state *domain.State) error
}

// FileRepository persists the alarm snapshot to a JSON file on disk.
// The file holds the same AlarmState message the gRPC API returns,
// encoded with protojson.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var message structpb.Struct
	if err = protojson.Unmarshal(contents, &message); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return pb.DecodeState(&message), nil
}

// Save writes the snapshot to disk, replacing the previous one atomically.
func (r *FileRepository) Save(_ context.Context, state *domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
	}

	data, err := marshalOptions.Marshal(pb.EncodeState(state).Build())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err = os.WriteFile(tmpPath, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
