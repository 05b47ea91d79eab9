package engine

import (
	"context"
	"os"

	"github.com/skelet0wn-go/skelet0wn/pkg/metrics"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

// UploadFile reads a file from the host filesystem and inserts it into
// the "files" collection under a logical name, making it available for
// a later ShareFile to publish into the shared directory.
type UploadFile struct {
	Identity

	HostPath    string
	LogicalName string
}

// NewUploadFile constructs an UploadFile node.
func NewUploadFile(hostPath, logicalName string) *UploadFile {
	return &UploadFile{HostPath: hostPath, LogicalName: logicalName}
}

func (u *UploadFile) PrepareEnvironment(_ context.Context, outputDir, sharedDir, name string) error {
	return u.Identity.Prepare(outputDir, sharedDir, name)
}

// Run reads HostPath and stores its bytes in "files" under LogicalName.
func (u *UploadFile) Run(ctx context.Context, db store.Store, runID string) error {
	content, err := os.ReadFile(u.HostPath)
	if err != nil {
		metrics.NodeRunsTotal.WithLabelValues("uploadFile", "failure").Inc()
		return &NodeError{Node: u.Name, Class: "uploadFile", Msg: "failed to read host file", Cause: err}
	}

	id, err := db.InsertOne(ctx, "files", map[string]interface{}{
		"filename": u.LogicalName,
		"content":  content,
	})
	if err != nil {
		metrics.NodeRunsTotal.WithLabelValues("uploadFile", "failure").Inc()
		return &NodeError{Node: u.Name, Class: "uploadFile", Msg: "failed to insert file record", Cause: err}
	}

	collection := "files"
	if err := StoreMetadata(ctx, db, &u.Identity, "uploadFile", runID, &collection, id, nil); err != nil {
		return err
	}
	metrics.NodeRunsTotal.WithLabelValues("uploadFile", "success").Inc()
	return nil
}

// Interrupt is a no-op: UploadFile's work is a single local read/insert.
func (u *UploadFile) Interrupt(_ context.Context) {}

var _ Node = (*UploadFile)(nil)

// ShareFile publishes a previously uploaded file (by logical name) into
// the shared directory, where every container in the workflow can read
// it at /mnt/shared/<logicalName>. It bridges a document-store blob to a
// filesystem path a downstream Tool Node's container can mount.
type ShareFile struct {
	Identity

	LogicalName string
	targetPath  string
}

// NewShareFile constructs a ShareFile node.
func NewShareFile(logicalName string) *ShareFile {
	return &ShareFile{LogicalName: logicalName}
}

// PrepareEnvironment additionally computes this node's target path
// inside the shared directory, per spec §4.8.
func (s *ShareFile) PrepareEnvironment(_ context.Context, outputDir, sharedDir, name string) error {
	if err := s.Identity.Prepare(outputDir, sharedDir, name); err != nil {
		return err
	}
	s.targetPath = sharedDir + "/" + s.LogicalName
	return nil
}

// Run looks up LogicalName in "files", writes its content bytes to the
// shared directory, and publishes a pointer to the written path into
// "temp" so a downstream node's dynamic provider (typically
// {root: "previous", collection: "temp", projection: {"result.filepath": 1}})
// can resolve it.
func (s *ShareFile) Run(ctx context.Context, db store.Store, runID string) error {
	doc, found, err := db.FindOne(ctx, "files", map[string]interface{}{"filename": s.LogicalName}, nil)
	if err != nil {
		metrics.NodeRunsTotal.WithLabelValues("shareFile", "failure").Inc()
		return &NodeError{Node: s.Name, Class: "shareFile", Msg: "failed to look up file record", Cause: err}
	}
	if !found {
		metrics.NodeRunsTotal.WithLabelValues("shareFile", "failure").Inc()
		return &NodeError{Node: s.Name, Class: "shareFile", Msg: "no file record named " + s.LogicalName}
	}

	content, ok := doc["content"].([]byte)
	if !ok {
		metrics.NodeRunsTotal.WithLabelValues("shareFile", "failure").Inc()
		return &NodeError{Node: s.Name, Class: "shareFile", Msg: "file record has no byte content"}
	}

	if err := os.WriteFile(s.targetPath, content, 0o644); err != nil {
		metrics.NodeRunsTotal.WithLabelValues("shareFile", "failure").Inc()
		return &NodeError{Node: s.Name, Class: "shareFile", Msg: "failed to write shared file", Cause: err}
	}

	id, err := db.InsertOne(ctx, "temp", map[string]interface{}{
		"result": map[string]interface{}{
			"filepath": "/mnt/shared/" + s.LogicalName,
		},
	})
	if err != nil {
		metrics.NodeRunsTotal.WithLabelValues("shareFile", "failure").Inc()
		return &NodeError{Node: s.Name, Class: "shareFile", Msg: "failed to store share pointer", Cause: err}
	}

	collection := "temp"
	if err := StoreMetadata(ctx, db, &s.Identity, "shareFile", runID, &collection, id, nil); err != nil {
		return err
	}
	metrics.NodeRunsTotal.WithLabelValues("shareFile", "success").Inc()
	return nil
}

// Interrupt is a no-op: ShareFile's work is a single local write/insert.
func (s *ShareFile) Interrupt(_ context.Context) {}

var _ Node = (*ShareFile)(nil)
