// Package joinstatus reads the host's domain and cloud join state from
// `dsregcmd /status`, and can ask dsregcmd to attempt a hybrid join.
package joinstatus

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

type JoinState int

const (
	NeitherOrUnknown JoinState = iota
	DomainOnlyNotCloud
	BothJoined
)

func (s JoinState) String() string {
	switch s {
	case BothJoined:
		return "both_joined"
	case DomainOnlyNotCloud:
		return "domain_only_not_cloud"
	default:
		return "neither_or_unknown"
	}
}

const (
	domainJoinedLabel = "DomainJoined"
	cloudJoinedLabel  = "AzureAdJoined"
	delimiter         = ":"

	yes = "YES"
	no  = "NO"
)

// JoinStatus is the classified state along with the raw field values it was
// derived from. A raw value is empty when its label was not found.
type JoinStatus struct {
	State         JoinState
	DomainJoined  string
	AzureAdJoined string
}

// ParseStatus classifies dsregcmd output. Output that is missing a label,
// localized, reordered or otherwise unexpected classifies as NeitherOrUnknown.
func ParseStatus(output []byte) JoinStatus {
	status := JoinStatus{
		DomainJoined:  fieldValue(output, domainJoinedLabel),
		AzureAdJoined: fieldValue(output, cloudJoinedLabel),
	}

	domainJoined := strings.EqualFold(status.DomainJoined, yes)
	cloudJoined := strings.EqualFold(status.AzureAdJoined, yes)
	cloudNotJoined := strings.EqualFold(status.AzureAdJoined, no)

	switch {
	case domainJoined && cloudJoined:
		status.State = BothJoined
	case domainJoined && cloudNotJoined:
		status.State = DomainOnlyNotCloud
	default:
		status.State = NeitherOrUnknown
	}

	return status
}

// fieldValue returns the trimmed value of the first `label : value` line.
func fieldValue(output []byte, label string) string {
	output = bytes.TrimPrefix(output, []byte("\uFEFF"))

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		idx := strings.Index(line, label)
		if idx < 0 {
			continue
		}

		rest := strings.TrimSpace(line[idx+len(label):])
		if !strings.HasPrefix(rest, delimiter) {
			continue
		}

		return strings.TrimSpace(strings.TrimPrefix(rest, delimiter))
	}

	return ""
}

// Prober is the subset of the join client the convergence loop uses.
type Prober interface {
	Probe(ctx context.Context) JoinStatus
	Join(ctx context.Context)
}
