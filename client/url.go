// File: client/url.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/momentics/wsio/protocol"
)

// buildDialURL builds ws://host:port/<request_path>?namespace=/<namespace>
// from endpoint's scheme and host and the namespace argument. Any path on
// endpoint is replaced by request_path; it is not read as the namespace.
func buildDialURL(endpoint, namespace, requestPath string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("client: invalid endpoint %q: %w", endpoint, err)
	}
	ns := protocol.NormalizeNamespacePath(namespace)
	u.Path = "/" + strings.TrimPrefix(requestPath, "/")
	q := u.Query()
	q.Set(protocol.NamespaceQueryParam, ns)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
