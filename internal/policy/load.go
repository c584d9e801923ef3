package policy

import (
	"errors"
	"fmt"
	"milterpolicy/internal/acl"
	"milterpolicy/internal/ports"
	"milterpolicy/internal/types"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	log "github.com/sirupsen/logrus"
)

type directiveKind int

const (
	cacheList directiveKind = iota
	serverList
	networkList
	rcptList
)

// directive binds a YAML list to the operation ingesting its items.
type directive struct {
	path  string
	kind  directiveKind
	role  types.Role
	acl   types.ACL
	scope types.Scope
}

var directives = []directive{
	{path: "$.cache.servers_grey", kind: cacheList, role: types.CacheGrey},
	{path: "$.cache.servers_white", kind: cacheList, role: types.CacheWhite},
	{path: "$.cache.servers_limits", kind: cacheList, role: types.CacheLimits},
	{path: "$.cache.servers_id", kind: cacheList, role: types.CacheID},
	{path: "$.cache.servers_copy", kind: cacheList, role: types.CacheCopy},
	{path: "$.cache.servers_spam", kind: cacheList, role: types.CacheSpam},
	{path: "$.clamav.servers", kind: serverList, role: types.ClamAV},
	{path: "$.spamd.servers", kind: serverList, role: types.SpamdPrimary},
	{path: "$.spamd.extra_servers", kind: serverList, role: types.SpamdExtra},
	{path: "$.greylisting.whitelist", kind: networkList, acl: types.GreyWhitelist},
	{path: "$.limits.whitelist_ip", kind: networkList, acl: types.LimitWhitelist},
	{path: "$.spamd.whitelist", kind: networkList, acl: types.SpamdWhitelist},
	{path: "$.clamav.whitelist", kind: networkList, acl: types.ClamAVWhitelist},
	{path: "$.dkim.sign_networks", kind: networkList, acl: types.DKIMNetworks},
	{path: "$.our_networks", kind: networkList, acl: types.OurNetworks},
	{path: "$.whitelist_rcpt", kind: rcptList, scope: types.ScopeGlobal},
	{path: "$.limits.whitelist_rcpt", kind: rcptList, scope: types.ScopeLimit},
}

// Load reads and ingests the policy file at path.
func Load(path string, warn ports.Warner) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Err(types.ErrInvalidConfig, err, "cannot read config file %s", path)
	}
	return Parse(path, data, warn)
}

// Parse builds a policy from the YAML document in data. name is only used in
// error messages. Any failing directive aborts the whole load and the partly
// built policy is released.
func Parse(name string, data []byte, warn ports.Warner) (*Policy, error) {
	p := New(warn)
	p.Source = name

	file, err := parser.ParseBytes(data, 0)
	if err != nil {
		p.Release()
		return nil, types.Err(types.ErrInvalidConfig, err, "config file %s parse error", name)
	}
	body, err := documentBody(file)
	if err != nil {
		p.Release()
		return nil, types.Err(types.ErrInvalidConfig, err, "config file %s parse error", name)
	}
	if body == nil {
		return p, nil
	}

	if err := yaml.NodeToValue(body, &p.Settings); err != nil {
		p.Release()
		return nil, types.Err(types.ErrInvalidConfig, err, "config file %s parse error", name)
	}
	if err := p.Settings.Validate(); err != nil {
		p.Release()
		return nil, types.Err(types.ErrInvalidConfig, err, "config file %s", name)
	}

	for _, d := range directives {
		if err := p.ingest(name, body, d); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// documentBody returns the top-level mapping of the first non-empty document,
// or nil when the file holds nothing but comments or empty documents.
func documentBody(file *ast.File) (ast.Node, error) {
	for _, doc := range file.Docs {
		switch body := doc.Body.(type) {
		case nil, *ast.NullNode, *ast.CommentGroupNode:
			continue
		case *ast.MappingNode, *ast.MappingValueNode:
			return body, nil
		default:
			return nil, fmt.Errorf("expected a mapping at the top level, got %s", body.Type())
		}
	}
	return nil, nil
}

func (p *Policy) ingest(name string, body ast.Node, d directive) error {
	path, err := yaml.PathString(d.path)
	if err != nil {
		return err
	}
	// Parent sections already decoded into Settings, so they are either
	// mappings or null. A lookup failure below them means the list is absent.
	node, err := path.FilterNode(body)
	if err != nil {
		if !errors.Is(err, yaml.ErrNotFoundNode) {
			log.WithError(err).WithField("directive", d.path[2:]).Debug("directive not resolved")
		}
		return nil
	}
	if node == nil || node.Type() == ast.NullType {
		return nil
	}
	seq, ok := node.(*ast.SequenceNode)
	if !ok {
		return lineErr(name, node, d, node.String(), fmt.Errorf("expected a list"))
	}

	for _, item := range seq.Values {
		if err := p.ingestItem(d, item); err != nil {
			return lineErr(name, item, d, item.String(), err)
		}
	}
	return nil
}

func (p *Policy) ingestItem(d directive, item ast.Node) error {
	if d.kind == cacheList {
		if pair, ok := item.(*ast.SequenceNode); ok {
			var specs []string
			if err := yaml.NodeToValue(pair, &specs); err != nil {
				return err
			}
			if len(specs) == 0 || len(specs) > 2 {
				return fmt.Errorf("expected [primary, mirror]")
			}
			mirror := ""
			if len(specs) == 2 {
				mirror = specs[1]
			}
			return p.Pools.AddCacheServer(d.role, specs[0], mirror)
		}
	}

	text, err := scalarText(item)
	if err != nil {
		return err
	}
	switch d.kind {
	case cacheList:
		return p.Pools.AddCacheServer(d.role, text, "")
	case serverList:
		return p.Pools.AddEndpoint(d.role, text, d.role.DefaultPort())
	case networkList:
		return acl.AddNetwork(p.networks[d.acl], text)
	case rcptList:
		p.Rcpts.Insert(d.scope, text)
	}
	return nil
}

func scalarText(item ast.Node) (string, error) {
	if _, ok := item.(ast.ScalarNode); !ok {
		return "", fmt.Errorf("expected a scalar, got %s", item.Type())
	}
	var s string
	if err := yaml.NodeToValue(item, &s); err != nil {
		return "", err
	}
	return s, nil
}

func lineErr(name string, node ast.Node, d directive, text string, reason error) error {
	line := 0
	if tk := node.GetToken(); tk != nil && tk.Position != nil {
		line = tk.Position.Line
	}
	return types.Err(types.ErrInvalidConfig, reason,
		"config file %s parse error! line: %d, directive: %s, text: %s", name, line, d.path[2:], text)
}
