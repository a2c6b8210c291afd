package session

import (
	"time"

	"github.com/3leaps/nimbrowse/pkg/preview"
	"github.com/3leaps/nimbrowse/pkg/provider"
	"github.com/3leaps/nimbrowse/pkg/transfer"
)

// Msg is the result of a Cmd, fed back into Engine.Update.
type Msg any

// Cmd performs blocking work off the input path and reports its outcome
// as a Msg. A nil Cmd does nothing.
type Cmd func() Msg

// BatchMsg carries several commands to run concurrently.
type BatchMsg []Cmd

// Batch combines commands, dropping nils.
func Batch(cmds ...Cmd) Cmd {
	var valid []Cmd
	for _, c := range cmds {
		if c != nil {
			valid = append(valid, c)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	default:
		return func() Msg { return BatchMsg(valid) }
	}
}

// channel identifies an independently superseded load.
type channel int

const (
	chanBuckets channel = iota
	chanObjects
	chanPreview
	chanAccount
	numChannels
)

func (c channel) String() string {
	switch c {
	case chanBuckets:
		return "buckets"
	case chanObjects:
		return "objects"
	case chanPreview:
		return "preview"
	case chanAccount:
		return "account"
	default:
		return "unknown"
	}
}

type bucketsLoaded struct {
	gen     uint64
	buckets []provider.Bucket
	err     error
	elapsed time.Duration
}

type objectsLoaded struct {
	gen     uint64
	req     listReq
	page    *provider.Page
	err     error
	elapsed time.Duration
}

type previewLoaded struct {
	gen     uint64
	bucket  string
	key     string
	result  *preview.Result
	err     error
	elapsed time.Duration
}

type accountOpened struct {
	gen     uint64
	name    string
	backend provider.Provider
	err     error
}

type mutationDone struct {
	epoch    uint64
	action   Action
	label    string
	summary  *transfer.Summary
	err      error
	affected []objectRef
	relist   bool
}

// ProgressMsg reports progress of the running mutation.
type ProgressMsg struct {
	epoch    uint64
	Progress transfer.Progress
}

// objectRef names a key whose listings a mutation may have changed.
type objectRef struct {
	bucket string
	key    string
}
