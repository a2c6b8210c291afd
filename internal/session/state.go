package session

import (
	"fmt"
	"time"

	"github.com/3leaps/nimbrowse/pkg/preview"
	"github.com/3leaps/nimbrowse/pkg/provider"
	"github.com/3leaps/nimbrowse/pkg/transfer"
)

// Mode is the engine's state-machine state.
type Mode int

const (
	ModeBuckets Mode = iota
	ModeObjects
	ModeSearching
	ModePreviewing
	ModeConfirming
)

func (m Mode) String() string {
	switch m {
	case ModeBuckets:
		return "buckets"
	case ModeObjects:
		return "objects"
	case ModeSearching:
		return "searching"
	case ModePreviewing:
		return "previewing"
	case ModeConfirming:
		return "confirming"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Pane is the focused list.
type Pane int

const (
	PaneBuckets Pane = iota
	PaneObjects
)

func (p Pane) String() string {
	if p == PaneObjects {
		return "objects"
	}
	return "buckets"
}

// Action is a mutation awaiting confirmation.
type Action int

const (
	ActionDelete Action = iota + 1
	ActionUpload
	ActionDownload
	ActionCopy
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionUpload:
		return "upload"
	case ActionDownload:
		return "download"
	case ActionCopy:
		return "copy"
	default:
		return "none"
	}
}

// Level is a notice severity.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient user-visible message.
type Notice struct {
	Level Level
	Text  string
	Kind  provider.ErrorKind
	At    time.Time
}

// Confirmation describes a pending mutation.
type Confirmation struct {
	Action Action

	// Bucket holds the targets (or receives an upload or copy).
	Bucket string

	// Targets are the remote objects acted on (delete, download).
	Targets []provider.Object

	// Local is the local source (upload) or destination (download).
	Local string

	// Prefix is the upload destination prefix.
	Prefix string

	// Source is the copy source.
	Source *ObjectRef

	// DestKey is the copy destination key in Bucket.
	DestKey string
}

// ObjectRef locates an object in the active account.
type ObjectRef struct {
	Bucket string
	Object provider.Object
}

// Prompt renders the confirmation question.
func (c Confirmation) Prompt() string {
	switch c.Action {
	case ActionDelete:
		if len(c.Targets) == 1 {
			t := c.Targets[0]
			if t.IsDirectory {
				return fmt.Sprintf("Delete directory %s/%s and everything under it?", c.Bucket, t.Key)
			}
			return fmt.Sprintf("Delete %s/%s?", c.Bucket, t.Key)
		}
		return fmt.Sprintf("Delete %d items from %s?", len(c.Targets), c.Bucket)
	case ActionUpload:
		return fmt.Sprintf("Upload %s to %s/%s?", c.Local, c.Bucket, c.Prefix)
	case ActionDownload:
		if len(c.Targets) == 1 {
			return fmt.Sprintf("Download %s/%s to %s?", c.Bucket, c.Targets[0].Key, c.Local)
		}
		return fmt.Sprintf("Download %d items to %s?", len(c.Targets), c.Local)
	case ActionCopy:
		if c.Source == nil {
			return "Copy?"
		}
		return fmt.Sprintf("Copy %s/%s to %s/%s?", c.Source.Bucket, c.Source.Object.Key, c.Bucket, c.DestKey)
	default:
		return "Confirm?"
	}
}

// PreviewState is an open preview.
type PreviewState struct {
	Bucket string
	Result *preview.Result
	View   preview.View
}

// Loading flags outstanding loads for the pending indicator.
type Loading struct {
	Buckets bool
	Objects bool
	Preview bool
	Account bool

	// Target is the bucket/prefix an outstanding object load will show.
	Target string
}

// Any reports whether any load is outstanding.
func (l Loading) Any() bool {
	return l.Buckets || l.Objects || l.Preview || l.Account
}

// Snapshot is an immutable copy of the session state for rendering.
type Snapshot struct {
	SessionID string
	Account   string
	Accounts  []string
	Provider  provider.Kind

	Mode  Mode
	Focus Pane

	// Buckets is the visible (filtered) bucket list.
	Buckets      []provider.Bucket
	BucketCursor int

	Bucket    string
	Prefix    string
	PathStack []string

	// Objects is the visible (filtered) listing.
	Objects      []provider.Object
	ObjectCursor int
	TotalObjects int
	HasMore      bool

	Selection []string
	Filter    string
	FilterOn  Pane

	Preview *PreviewState
	Confirm *Confirmation
	Yanked  *ObjectRef

	Loading  Loading
	Busy     Action
	Progress *transfer.Progress
	Notice   *Notice
}

// Path renders "/bucket/prefix".
func (s Snapshot) Path() string {
	if s.Bucket == "" {
		return ""
	}
	return "/" + s.Bucket + "/" + s.Prefix
}
