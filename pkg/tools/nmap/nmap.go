// Package nmap is the worked tool-wrapper example named in SPEC_FULL.md
// §6: a direct port of the retrieved nmap/node.py's store_results,
// parsing nmap's XML output with encoding/xml instead of a Python XML
// library. Its principal output is the raw scan file, stored in the
// shared "files" collection, matching end-to-end scenario 1 in spec §8
// ("both with outputCollection=files"); the per-host records it upserts
// into "machines" are a domain side effect, out of the engine's contract
// per spec §1/§3 ("Tool Output Records... not part of the engine
// contract").
package nmap

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/skelet0wn-go/skelet0wn/pkg/store"
)

// ArtifactName is the XML report file the nmap container is expected to
// write into /mnt/skelet0wn/, per the command template's "-oX" flag.
const ArtifactName = "output.xml"

// run/nmaprun is nmap's XML report root.
type run struct {
	Hosts []host `xml:"host"`
}

type host struct {
	Status    status    `xml:"status"`
	Addresses []address `xml:"address"`
	Ports     ports     `xml:"ports"`
}

type status struct {
	// State reads the "state" attribute, resolving the spec's open
	// question (§9): the newer retrieved node.py variant reads "state",
	// not "_state".
	State string `xml:"state,attr"`
}

type address struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type ports struct {
	Port []port `xml:"port"`
}

type port struct {
	Protocol string    `xml:"protocol,attr"`
	PortID   string    `xml:"portid,attr"`
	State    portState `xml:"state"`
}

type portState struct {
	State string `xml:"state,attr"`
}

// Parser is nmap's ResultParser.
type Parser struct{}

// NewParser constructs an nmap Parser.
func NewParser() *Parser { return &Parser{} }

// StoreResults implements engine.ResultParser: it reads the XML report,
// stores its raw bytes as the principal output in "files", and upserts
// one "machines" document per discovered host keyed by IPv4 address.
func (p *Parser) StoreResults(ctx context.Context, db store.Store, outputDir, runID string) (*string, interface{}, error) {
	path := filepath.Join(outputDir, ArtifactName)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var parsed run
	if err := xml.Unmarshal(content, &parsed); err != nil {
		return nil, nil, err
	}

	for _, h := range parsed.Hosts {
		if err := upsertHost(ctx, db, h); err != nil {
			return nil, nil, err
		}
	}

	id, err := db.InsertOne(ctx, "files", map[string]interface{}{
		"filename": "output.xml",
		"content":  content,
		"run_id":   runID,
	})
	if err != nil {
		return nil, nil, err
	}

	collection := "files"
	return &collection, id, nil
}

func upsertHost(ctx context.Context, db store.Store, h host) error {
	var ipv4 string
	for _, a := range h.Addresses {
		if a.AddrType == "ipv4" {
			ipv4 = a.Addr
			break
		}
	}
	if ipv4 == "" {
		return nil
	}

	portMap := map[string]interface{}{}
	for _, port := range h.Ports.Port {
		portMap[port.PortID] = map[string]interface{}{"status": port.State.State}
	}

	update := map[string]interface{}{
		"$set": map[string]interface{}{
			"IP.ipv4": ipv4,
			"state":   h.Status.State,
		},
	}
	for portID, portDoc := range portMap {
		update["$set"].(map[string]interface{})["ports."+portID] = portDoc
	}

	return db.UpdateOne(ctx, "machines", map[string]interface{}{"IP.ipv4": ipv4}, update, true)
}
