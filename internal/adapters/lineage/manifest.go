// Package lineage assembles provenance manifests for transfer requests and
// exports them asynchronously to the artifact archive.
package lineage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/radome/sequencescape/pkg/domain"
)

// Source is the read surface the manifest builder needs. The transfer
// engine's persistent store satisfies it.
type Source interface {
	View(ctx context.Context, fn func(domain.TransactionView) error) error
}

// Manifest captures the full provenance of a transfer: where the material
// came from, which transfers carried it and what ended up in the target.
type Manifest struct {
	TransferID  string              `json:"transfer_id"`
	State       string              `json:"state"`
	GeneratedAt time.Time           `json:"generated_at"`
	Source      ReceptacleSummary   `json:"source"`
	Target      ReceptacleSummary   `json:"target"`
	Upstream    []TransferLink      `json:"upstream,omitempty"`
	Downstream  []TransferLink      `json:"downstream,omitempty"`
	Aliquots    []AliquotProvenance `json:"aliquots,omitempty"`
	StockWells  []string            `json:"stock_wells,omitempty"`
}

// ReceptacleSummary identifies one endpoint of a transfer.
type ReceptacleSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	State string `json:"state"`
}

// TransferLink is one hop in the transfer chain around the exported
// transfer.
type TransferLink struct {
	TransferID    string `json:"transfer_id"`
	AssetID       string `json:"asset_id"`
	TargetAssetID string `json:"target_asset_id"`
	State         string `json:"state"`
}

// AliquotProvenance describes one aliquot sitting in the target receptacle.
type AliquotProvenance struct {
	AliquotID   string `json:"aliquot_id"`
	SampleID    string `json:"sample_id"`
	TagID       string `json:"tag_id"`
	Tag2ID      string `json:"tag2_id"`
	RequestID   string `json:"request_id,omitempty"`
	StudyID     string `json:"study_id,omitempty"`
	LibraryType string `json:"library_type,omitempty"`
	Suboptimal  bool   `json:"suboptimal"`
}

// BuildManifest assembles the provenance manifest for transferID from a
// consistent snapshot of the store.
func BuildManifest(ctx context.Context, src Source, transferID string, now time.Time) (Manifest, error) {
	var manifest Manifest
	err := src.View(ctx, func(view domain.TransactionView) error {
		transfer, ok := view.FindTransferRequest(transferID)
		if !ok {
			return fmt.Errorf("transfer request %s not found", transferID)
		}
		manifest = Manifest{
			TransferID:  transfer.ID,
			State:       string(transfer.State),
			GeneratedAt: now.UTC(),
			Source:      summarize(view, transfer.AssetID),
			Target:      summarize(view, transfer.TargetAssetID),
			Upstream:    walkUpstream(view, transfer),
			Downstream:  walkDownstream(view, transfer),
		}
		for _, aliquot := range view.AliquotsByReceptacle(transfer.TargetAssetID) {
			manifest.Aliquots = append(manifest.Aliquots, provenance(aliquot))
		}
		sort.Slice(manifest.Aliquots, func(i, j int) bool {
			return manifest.Aliquots[i].AliquotID < manifest.Aliquots[j].AliquotID
		})
		if target, ok := view.FindReceptacle(transfer.TargetAssetID); ok {
			manifest.StockWells = append([]string(nil), target.StockWellIDs...)
			sort.Strings(manifest.StockWells)
		}
		return nil
	})
	if err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func summarize(view domain.TransactionView, receptacleID string) ReceptacleSummary {
	summary := ReceptacleSummary{ID: receptacleID}
	if r, ok := view.FindReceptacle(receptacleID); ok {
		summary.Name = r.Name
		summary.Kind = string(r.Kind)
		summary.State = string(r.State)
	}
	return summary
}

func provenance(a domain.Aliquot) AliquotProvenance {
	p := AliquotProvenance{
		AliquotID:  a.ID,
		SampleID:   a.SampleID,
		TagID:      a.TagID,
		Tag2ID:     a.Tag2ID,
		Suboptimal: a.Suboptimal,
	}
	if a.RequestID != nil {
		p.RequestID = *a.RequestID
	}
	if a.StudyID != nil {
		p.StudyID = *a.StudyID
	}
	if a.LibraryType != nil {
		p.LibraryType = *a.LibraryType
	}
	return p
}

// walkUpstream follows transfers whose target is the current source,
// oldest hops last. A visited set guards against cyclic chains.
func walkUpstream(view domain.TransactionView, transfer domain.TransferRequest) []TransferLink {
	var links []TransferLink
	visited := map[string]struct{}{transfer.ID: {}}
	frontier := []string{transfer.AssetID}
	for len(frontier) > 0 {
		assetID := frontier[0]
		frontier = frontier[1:]
		for _, tr := range view.ListTransferRequests() {
			if tr.TargetAssetID != assetID {
				continue
			}
			if _, seen := visited[tr.ID]; seen {
				continue
			}
			visited[tr.ID] = struct{}{}
			links = append(links, link(tr))
			frontier = append(frontier, tr.AssetID)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].TransferID < links[j].TransferID })
	return links
}

func walkDownstream(view domain.TransactionView, transfer domain.TransferRequest) []TransferLink {
	var links []TransferLink
	visited := map[string]struct{}{transfer.ID: {}}
	frontier := []string{transfer.TargetAssetID}
	for len(frontier) > 0 {
		assetID := frontier[0]
		frontier = frontier[1:]
		for _, tr := range view.TransferRequestsByAsset(assetID) {
			if _, seen := visited[tr.ID]; seen {
				continue
			}
			visited[tr.ID] = struct{}{}
			links = append(links, link(tr))
			frontier = append(frontier, tr.TargetAssetID)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].TransferID < links[j].TransferID })
	return links
}

func link(tr domain.TransferRequest) TransferLink {
	return TransferLink{
		TransferID:    tr.ID,
		AssetID:       tr.AssetID,
		TargetAssetID: tr.TargetAssetID,
		State:         string(tr.State),
	}
}

// RenderJSON encodes the manifest as indented JSON.
func (m Manifest) RenderJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

var csvHeader = []string{"aliquot_id", "sample_id", "tag_id", "tag2_id", "request_id", "study_id", "library_type", "suboptimal"}

// RenderCSV encodes the aliquot provenance rows as CSV, one row per aliquot
// in the target receptacle.
func (m Manifest) RenderCSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, a := range m.Aliquots {
		row := []string{a.AliquotID, a.SampleID, a.TagID, a.Tag2ID, a.RequestID, a.StudyID, a.LibraryType, strconv.FormatBool(a.Suboptimal)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
