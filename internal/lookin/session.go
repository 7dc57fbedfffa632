// Copyright 2025 Joseph Cumines
//
// Session: connection ownership, caches, and multi-request workflows

package lookin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joeycumines/lookin-mcp/internal/lookin/archive"
)

// Session holds the connection, the request manager, and the caches that
// coordinate multi-request workflows. Operations are serialized externally
// by the MCP tool dispatcher; the session adds no locking beyond what the
// connection provides.
type Session struct {
	conn     *Conn
	requests *RequestManager
	observer WireObserver
	timeouts Timeouts

	cachedHierarchy      *HierarchyInfo
	cachedTextContentMap map[uint64]string

	enrichConcurrency int
}

// NewSession returns a disconnected session with the given per-operation
// timeouts.
func NewSession(timeouts Timeouts) *Session {
	return &Session{
		timeouts:          timeouts,
		enrichConcurrency: DefaultEnrichConcurrency,
	}
}

// SetObserver installs a metrics hook applied to every connection's wire
// requests.
func (s *Session) SetObserver(obs WireObserver) {
	s.observer = obs
	if s.requests != nil {
		s.requests.SetObserver(obs)
	}
}

func (s *Session) connectTimeout() time.Duration {
	if s.timeouts.Connect > 0 {
		return s.timeouts.Connect
	}
	return 5 * time.Second
}

func (s *Session) probeTimeout() time.Duration {
	if s.timeouts.Probe > 0 {
		return s.timeouts.Probe
	}
	return DefaultProbeTimeout
}

// SetEnrichConcurrency overrides the text-enrichment fan-out bound.
func (s *Session) SetEnrichConcurrency(n int) {
	if n > 0 {
		s.enrichConcurrency = n
	}
}

// Connected reports whether a Ready connection exists.
func (s *Session) Connected() bool {
	return s.conn != nil && s.conn.State() == StateReady
}

// Port reports the connected port, or 0.
func (s *Session) Port() int {
	if s.conn == nil {
		return 0
	}
	return s.conn.Port()
}

// Connect establishes a fresh connection to the given port. An existing
// Ready connection fails with ErrAlreadyConnected; disconnect first.
func (s *Session) Connect(ctx context.Context, port int) error {
	if s.Connected() {
		return ErrAlreadyConnected
	}

	conn := NewConn()
	if err := conn.Connect(ctx, port, s.connectTimeout()); err != nil {
		return err
	}
	s.conn = conn
	s.requests = NewRequestManager(conn, s.timeouts)
	if s.observer != nil {
		s.requests.SetObserver(s.observer)
	}
	return nil
}

// ConnectFirst probes the well-known port range and connects to the first
// live port.
func (s *Session) ConnectFirst(ctx context.Context) (int, error) {
	if s.Connected() {
		return 0, ErrAlreadyConnected
	}
	port, ok := FindFirst(ctx, DefaultPorts(), s.probeTimeout())
	if !ok {
		return 0, fmt.Errorf("no LookinServer found on ports %d-%d (is the simulator app running with LookinServer linked?)", PortRangeStart, PortRangeEnd)
	}
	return port, s.Connect(ctx, port)
}

// Disconnect tears the connection down and clears both caches.
func (s *Session) Disconnect() {
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = nil
	s.requests = nil
	s.cachedHierarchy = nil
	s.cachedTextContentMap = nil
}

// dropOnTransportError disconnects when err is a transport failure (the
// connection is gone, a read or send failed, or the request timed out), so
// the next tool call starts from Idle.
func (s *Session) dropOnTransportError(err error) {
	var readErr *ReadError
	var sendErr *SendError
	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrTimeout) ||
		errors.As(err, &readErr) || errors.As(err, &sendErr) {
		log.Printf("lookin: dropping connection after transport error: %v", err)
		s.Disconnect()
	}
}

func (s *Session) manager() (*RequestManager, error) {
	if !s.Connected() || s.requests == nil {
		return nil, ErrNotConnected
	}
	return s.requests, nil
}

// Ping checks server liveness. A transport failure drops the connection so
// the next call cleanly retries.
func (s *Session) Ping(ctx context.Context) (*PingResult, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	res, err := m.Ping(ctx)
	if err != nil {
		s.dropOnTransportError(err)
		return nil, err
	}
	return res, nil
}

// FetchAppInfo fetches app metadata.
func (s *Session) FetchAppInfo(ctx context.Context) (*AppInfo, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return m.FetchAppInfo(ctx)
}

// FetchHierarchy fetches a fresh hierarchy snapshot, repopulating the
// hierarchy cache and clearing the text cache.
func (s *Session) FetchHierarchy(ctx context.Context) (*HierarchyInfo, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	info, err := m.FetchHierarchy(ctx)
	if err != nil {
		s.dropOnTransportError(err)
		return nil, err
	}
	s.cachedHierarchy = info
	s.cachedTextContentMap = nil
	return info, nil
}

// Hierarchy returns the cached hierarchy, fetching one if absent.
func (s *Session) Hierarchy(ctx context.Context) (*HierarchyInfo, error) {
	if s.cachedHierarchy != nil {
		return s.cachedHierarchy, nil
	}
	return s.FetchHierarchy(ctx)
}

// CachedHierarchy returns the cached hierarchy or nil without fetching.
func (s *Session) CachedHierarchy() *HierarchyInfo {
	return s.cachedHierarchy
}

// TextContents returns the view-oid → text map for the cached hierarchy,
// running the chunked enrichment workflow on first use.
func (s *Session) TextContents(ctx context.Context) (map[uint64]string, error) {
	if s.cachedTextContentMap != nil {
		return s.cachedTextContentMap, nil
	}
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	h, err := s.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedTextContentMap = m.FetchTextContents(ctx, h, s.enrichConcurrency)
	return s.cachedTextContentMap, nil
}

// FetchAttrGroups reads the attribute groups for oid, translating a view
// oid to its layer oid via the cached hierarchy when possible.
func (s *Session) FetchAttrGroups(ctx context.Context, oid uint64) ([]AttributesGroup, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return m.FetchAllAttrGroups(ctx, s.resolveLayerOid(oid))
}

// resolveLayerOid translates a view oid to its layer oid using the cached
// hierarchy; absent a cache the oid is used as-is.
func (s *Session) resolveLayerOid(oid uint64) uint64 {
	if s.cachedHierarchy == nil {
		return oid
	}
	return s.cachedHierarchy.LayerOidFor(oid)
}

// resolveTargetOid picks the oid a modification should address based on the
// registry's target kind.
func (s *Session) resolveTargetOid(oid uint64, target TargetKind) uint64 {
	if target != TargetLayer {
		return oid
	}
	return s.resolveLayerOid(oid)
}

// ModifyAttribute parses value for the named attribute and applies the
// modification. The text cache is invalidated on success, since the visible
// text may have changed.
func (s *Session) ModifyAttribute(ctx context.Context, attrName string, oid uint64, value string) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	mapping, err := LookupAttribute(attrName)
	if err != nil {
		return err
	}
	parsed, err := ParseAttrValue(mapping, value)
	if err != nil {
		return err
	}

	err = m.ModifyAttribute(ctx, &archive.Modification{
		TargetOid:      s.resolveTargetOid(oid, mapping.Target),
		SetterSelector: mapping.SetterSelector,
		AttrType:       mapping.AttrType,
		Value:          parsed,
	})
	if err != nil {
		return err
	}
	s.cachedTextContentMap = nil
	return nil
}

// InvokeMethod invokes a selector on the object with the given oid.
func (s *Session) InvokeMethod(ctx context.Context, oid uint64, selector string) (string, error) {
	m, err := s.manager()
	if err != nil {
		return "", err
	}
	return m.InvokeMethod(ctx, oid, selector)
}

// FetchSelectorNames lists selectors on a class.
func (s *Session) FetchSelectorNames(ctx context.Context, className string, hasArg bool) ([]string, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return m.FetchSelectorNames(ctx, className, hasArg)
}
