// Copyright 2025 Joseph Cumines
//
// Typed request operations over the LookinServer connection

package lookin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/lookin-mcp/internal/lookin/archive"
)

// ClientVersion is the client-version string sent with attribute
// modifications for server-side compatibility checks.
const ClientVersion = "LookinMCP/1.0"

// VoidReturnSentinel marks a void return value from a method invocation.
const VoidReturnSentinel = "LOOKIN_TAG_RETURN_VALUE_VOID"

// textAttrIdentifiers is the set of attribute identifiers that carry
// user-visible text.
var textAttrIdentifiers = map[string]bool{
	"lb_t_t": true,
	"tf_t_t": true,
	"tf_p_p": true,
	"te_t_t": true,
}

// textBearingClasses marks view classes that can carry user-visible text.
// Subclasses match by suffix.
var textBearingClasses = []string{"UILabel", "UITextField", "UITextView"}

// Timeouts holds per-operation deadlines, measured from send. The transport
// performs no retries. Connect bounds the TCP dial and Probe each discovery
// attempt; the rest are request deadlines.
type Timeouts struct {
	Connect    time.Duration
	Probe      time.Duration
	Ping       time.Duration
	AppInfo    time.Duration
	Hierarchy  time.Duration
	AttrGroups time.Duration
	Modify     time.Duration
	Invoke     time.Duration
	Selectors  time.Duration
}

// DefaultTimeouts returns the default per-operation deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:    5 * time.Second,
		Probe:      2 * time.Second,
		Ping:       5 * time.Second,
		AppInfo:    10 * time.Second,
		Hierarchy:  15 * time.Second,
		AttrGroups: 15 * time.Second,
		Modify:     10 * time.Second,
		Invoke:     10 * time.Second,
		Selectors:  10 * time.Second,
	}
}

// DefaultEnrichConcurrency bounds the in-flight attribute reads during text
// enrichment. The server accepts a single TCP client, so requests funnel
// through one socket; more concurrency yields no speedup and can exhaust
// server-side buffers.
const DefaultEnrichConcurrency = 10

// WireObserver is notified of each completed wire request for metrics.
type WireObserver func(reqType uint32, status string, elapsed time.Duration)

// RequestManager provides typed operations on top of the connection and the
// archive codec.
type RequestManager struct {
	conn     *Conn
	observer WireObserver
	timeouts Timeouts
}

// NewRequestManager wraps conn with the given per-operation timeouts.
func NewRequestManager(conn *Conn, timeouts Timeouts) *RequestManager {
	return &RequestManager{conn: conn, timeouts: timeouts}
}

// SetObserver installs a metrics hook for completed wire requests.
func (m *RequestManager) SetObserver(obs WireObserver) {
	m.observer = obs
}

// roundTrip sends one request and decodes the response envelope. A non-null
// envelope error surfaces as *ServerError; decode failures surface wrapped
// in ErrInvalidFrame.
func (m *RequestManager) roundTrip(ctx context.Context, reqType uint32, payload []byte, timeout time.Duration) (*archive.ResponseAttachment, error) {
	start := time.Now()
	frame, err := m.conn.SendRequest(ctx, reqType, payload, timeout)
	if err != nil {
		m.observe(reqType, "error", start)
		return nil, err
	}

	resp, err := archive.DecodeResponse(frame.Payload)
	if err != nil {
		m.observe(reqType, "invalid", start)
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if resp.Error != nil {
		m.observe(reqType, "server_error", start)
		return nil, &ServerError{
			Domain:  resp.Error.Domain,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
		}
	}
	m.observe(reqType, "ok", start)
	return resp, nil
}

func (m *RequestManager) observe(reqType uint32, status string, start time.Time) {
	if m.observer != nil {
		m.observer(reqType, status, time.Since(start))
	}
}

// PingResult reports server liveness.
type PingResult struct {
	AppIsInBackground bool
}

// Ping checks that the server is alive and reports whether the app is
// backgrounded.
func (m *RequestManager) Ping(ctx context.Context) (*PingResult, error) {
	resp, err := m.roundTrip(ctx, RequestPing, nil, m.timeouts.Ping)
	if err != nil {
		return nil, err
	}
	return &PingResult{AppIsInBackground: resp.AppIsInBackground}, nil
}

// FetchAppInfo fetches app metadata. The server occasionally answers with a
// full hierarchy instead; its embedded appInfo is used in that case.
func (m *RequestManager) FetchAppInfo(ctx context.Context) (*AppInfo, error) {
	payload, err := archive.EncodeAttachment(map[string]interface{}{
		"needImages": false,
		"local":      []interface{}{},
	})
	if err != nil {
		return nil, err
	}
	resp, err := m.roundTrip(ctx, RequestApp, payload, m.timeouts.AppInfo)
	if err != nil {
		return nil, err
	}

	obj, ok := resp.Data.(*archive.Object)
	if !ok {
		return nil, fmt.Errorf("%w: app info payload is %T", ErrInvalidFrame, resp.Data)
	}
	switch obj.ClassName {
	case "LookinAppInfo":
		return decodeAppInfo(obj), nil
	case "LookinHierarchyInfo":
		info := decodeHierarchyInfo(obj)
		if info.AppInfo == nil {
			return nil, fmt.Errorf("%w: hierarchy payload carries no app info", ErrInvalidFrame)
		}
		return info.AppInfo, nil
	default:
		return nil, fmt.Errorf("%w: unexpected app info class %s", ErrInvalidFrame, obj.ClassName)
	}
}

// FetchHierarchy fetches the full view hierarchy snapshot.
func (m *RequestManager) FetchHierarchy(ctx context.Context) (*HierarchyInfo, error) {
	resp, err := m.roundTrip(ctx, RequestHierarchy, nil, m.timeouts.Hierarchy)
	if err != nil {
		return nil, err
	}
	obj, ok := resp.Data.(*archive.Object)
	if !ok || obj.ClassName != "LookinHierarchyInfo" {
		return nil, fmt.Errorf("%w: hierarchy payload is %T", ErrInvalidFrame, resp.Data)
	}
	return decodeHierarchyInfo(obj), nil
}

// FetchAllAttrGroups reads every attribute group of the layer with the given
// oid.
func (m *RequestManager) FetchAllAttrGroups(ctx context.Context, layerOid uint64) ([]AttributesGroup, error) {
	payload, err := archive.EncodeAttachment(layerOid)
	if err != nil {
		return nil, err
	}
	resp, err := m.roundTrip(ctx, RequestAllAttrGroups, payload, m.timeouts.AttrGroups)
	if err != nil {
		return nil, err
	}
	return decodeAttributesGroups(resp.Data)
}

// ModifyAttribute applies a parsed modification. The response detail is
// decoded leniently; a non-error envelope is the success indicator.
func (m *RequestManager) ModifyAttribute(ctx context.Context, mod *archive.Modification) error {
	mod.ClientReadableVersion = ClientVersion
	payload, err := archive.EncodeModification(mod)
	if err != nil {
		return err
	}
	_, err = m.roundTrip(ctx, RequestModification, payload, m.timeouts.Modify)
	return err
}

// InvokeMethod invokes a zero-argument selector on the object with the given
// oid and returns the description of its return value. Void returns come
// back as the empty string.
func (m *RequestManager) InvokeMethod(ctx context.Context, oid uint64, selector string) (string, error) {
	payload, err := archive.EncodeAttachment(map[string]interface{}{
		"oid":  oid,
		"text": selector,
	})
	if err != nil {
		return "", err
	}
	resp, err := m.roundTrip(ctx, RequestInvokeMethod, payload, m.timeouts.Invoke)
	if err != nil {
		return "", err
	}

	dict, ok := resp.Data.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: invoke payload is %T", ErrInvalidFrame, resp.Data)
	}
	desc, _ := dict["description"].(string)
	if desc == VoidReturnSentinel {
		return "", nil
	}
	return desc, nil
}

// FetchSelectorNames lists selector names of the given class. hasArg=false
// requests zero-argument selectors only.
func (m *RequestManager) FetchSelectorNames(ctx context.Context, className string, hasArg bool) ([]string, error) {
	payload, err := archive.EncodeAttachment(map[string]interface{}{
		"className": className,
		"hasArg":    hasArg,
	})
	if err != nil {
		return nil, err
	}
	resp, err := m.roundTrip(ctx, RequestAllSelectors, payload, m.timeouts.Selectors)
	if err != nil {
		return nil, err
	}

	raw, ok := resp.Data.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: selector list payload is %T", ErrInvalidFrame, resp.Data)
	}
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// isTextBearing reports whether className can carry user-visible text.
// Suffix matching covers subclasses.
func isTextBearing(className string) bool {
	for _, known := range textBearingClasses {
		if strings.HasSuffix(className, known) {
			return true
		}
	}
	return false
}

// textTarget is one enrichment candidate.
type textTarget struct {
	viewOid  uint64
	layerOid uint64
}

// FetchTextContents walks the hierarchy, collects every text-bearing view,
// and fans out attribute reads in chunks of at most concurrency in flight.
// The next chunk starts only after the previous fully drains. Per-view
// failures are swallowed; the view simply has no text entry.
func (m *RequestManager) FetchTextContents(ctx context.Context, h *HierarchyInfo, concurrency int) map[uint64]string {
	if concurrency <= 0 {
		concurrency = DefaultEnrichConcurrency
	}

	var targets []textTarget
	for _, root := range h.DisplayItems {
		root.Walk(func(item *DisplayItem) {
			if isTextBearing(item.ClassName) {
				targets = append(targets, textTarget{viewOid: item.ViewOid, layerOid: item.LayerOid})
			}
		})
	}

	result := make(map[uint64]string, len(targets))
	var resultMu sync.Mutex

	for start := 0; start < len(targets); start += concurrency {
		end := start + concurrency
		if end > len(targets) {
			end = len(targets)
		}
		chunk := targets[start:end]

		var wg sync.WaitGroup
		for _, target := range chunk {
			wg.Add(1)
			go func(target textTarget) {
				defer wg.Done()
				groups, err := m.FetchAllAttrGroups(ctx, target.layerOid)
				if err != nil {
					return
				}
				if text := extractTextValues(groups); text != "" {
					resultMu.Lock()
					result[target.viewOid] = text
					resultMu.Unlock()
				}
			}(target)
		}
		wg.Wait()
	}
	return result
}

// extractTextValues joins the non-empty text-attribute strings of one view
// with " | ".
func extractTextValues(groups []AttributesGroup) string {
	var parts []string
	for _, group := range groups {
		for _, section := range group.Sections {
			for _, attr := range section.Attrs {
				if !textAttrIdentifiers[attr.Identifier] {
					continue
				}
				if s, ok := attr.Value.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, " | ")
}
