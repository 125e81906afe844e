package mcws

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/3ll3d00d/jriver-bridge/utils"
)

// lookupURL is the JRiver hosted service that resolves an access key
// to the addresses the server last registered.
const lookupURL = "https://webplay.jriver.com/libraryserver/lookup"

// AccessKeyInfo is the result of resolving an access key.
type AccessKeyInfo struct {
	KeyID        string
	IP           string
	Port         int
	LocalIPs     []string
	MACAddresses []string
}

type lookupResponse struct {
	XMLName     xml.Name `xml:"Response"`
	Status      string   `xml:"Status,attr"`
	KeyID       string   `xml:"keyid"`
	IP          string   `xml:"ip"`
	Port        string   `xml:"port"`
	LocalIPList string   `xml:"localiplist"`
	MACList     string   `xml:"macaddresslist"`
}

// ResolveAccessKey resolves an access key to connection candidates so
// users need not supply host and port directly.
func ResolveAccessKey(ctx context.Context, key string) (AccessKeyInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL+"?id="+key, nil)
	if err != nil {
		return AccessKeyInfo{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	client := utils.NewHTTPClient(10 * time.Second)
	res, err := client.Do(req)
	if err != nil {
		return AccessKeyInfo{}, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return AccessKeyInfo{}, fmt.Errorf("%w: access key lookup returned %s", ErrMediaServer, res.Status)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return AccessKeyInfo{}, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	var lookup lookupResponse
	if err := xml.Unmarshal(body, &lookup); err != nil {
		return AccessKeyInfo{}, fmt.Errorf("%w: malformed lookup response: %v", ErrMediaServer, err)
	}
	if !strings.EqualFold(lookup.Status, "OK") {
		return AccessKeyInfo{}, fmt.Errorf("%w: unknown access key %q", ErrInvalidRequest, key)
	}
	port, err := strconv.Atoi(lookup.Port)
	if err != nil {
		return AccessKeyInfo{}, fmt.Errorf("%w: unparseable port %q in lookup response", ErrMediaServer, lookup.Port)
	}
	return AccessKeyInfo{
		KeyID:        lookup.KeyID,
		IP:           lookup.IP,
		Port:         port,
		LocalIPs:     splitList(lookup.LocalIPList),
		MACAddresses: splitList(lookup.MACList),
	}, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
