package registry

import (
	"milterpolicy/internal/types"
	"strconv"
	"strings"
)

// protoTag is the single supported scan-scoring protocol prefix. It is
// accepted for compatibility and otherwise ignored.
const protoTag = "r:"

// parseSpec splits host[:port[:priority]] into an Endpoint. An IPv6 literal
// host must be bracketed.
func parseSpec(spec string, defaultPort uint16) (types.Endpoint, error) {
	host, rest, hasRest, err := splitHost(spec)
	if err != nil {
		return types.Endpoint{}, err
	}
	if host == "" {
		return types.Endpoint{}, types.Err(types.ErrEmptyHost, nil, "server spec %q", spec)
	}

	ep := types.Endpoint{Address: host, Port: defaultPort}
	if !hasRest {
		return ep, nil
	}

	portStr, prioStr, hasPrio := strings.Cut(rest, ":")
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return types.Endpoint{}, types.Err(types.ErrInvalidPort, nil, "bad port %q in server spec %q", portStr, spec)
	}
	ep.Port = uint16(port)

	if !hasPrio || prioStr == "" {
		return ep, nil
	}
	if strings.Contains(prioStr, ":") {
		return types.Endpoint{}, types.Err(types.ErrInvalidPort, nil, "too many fields in server spec %q", spec)
	}
	prio, err := strconv.ParseUint(prioStr, 10, 32)
	if err != nil {
		return types.Endpoint{}, types.Err(types.ErrInvalidPriority, nil, "bad priority %q in server spec %q", prioStr, spec)
	}
	ep.Priority = uint(prio)
	return ep, nil
}

// splitHost returns the host part of spec and whatever follows the first
// separating colon.
func splitHost(spec string) (host, rest string, hasRest bool, err error) {
	if strings.HasPrefix(spec, "[") {
		end := strings.IndexByte(spec, ']')
		if end < 0 {
			return "", "", false, types.Err(types.ErrEmptyHost, nil, "unterminated IPv6 literal in server spec %q", spec)
		}
		host = spec[1:end]
		tail := spec[end+1:]
		switch {
		case tail == "":
			return host, "", false, nil
		case tail[0] == ':':
			return host, tail[1:], true, nil
		default:
			return "", "", false, types.Err(types.ErrInvalidPort, nil, "garbage after IPv6 literal in server spec %q", spec)
		}
	}
	host, rest, hasRest = strings.Cut(spec, ":")
	return host, rest, hasRest, nil
}
