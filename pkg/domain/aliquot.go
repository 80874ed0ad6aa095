package domain

import "fmt"

// TagDepth classifies how many of an aliquot's two tag slots are populated.
type TagDepth string

// Tag depth classifications, most highly tagged wins.
const (
	TagDepthUntagged TagDepth = "Untagged"
	TagDepthSingle   TagDepth = "Single"
	TagDepthDual     TagDepth = "Dual"
)

// TagSlot names one of the two index positions on an aliquot.
type TagSlot int

// The i7 (first) and i5 (second) tag slots.
const (
	TagSlot1 TagSlot = 1
	TagSlot2 TagSlot = 2
)

// Aliquot is an amount of a material in a liquid: the DNA of a sample, or a
// library (sample plus up to two tags). It sits in exactly one receptacle
// and, once created, only its suboptimal quality flag may change.
type Aliquot struct {
	Base
	ReceptacleID string `json:"receptacle_id"`
	SampleID     string `json:"sample_id"`
	// Tag references default to UnassignedTag rather than empty so the
	// storage-layer uniqueness index covers untagged aliquots too.
	TagID         string  `json:"tag_id"`
	Tag2ID        string  `json:"tag2_id"`
	StudyID       *string `json:"study_id"`
	ProjectID     *string `json:"project_id"`
	LibraryID     *string `json:"library_id"`
	BaitLibraryID *string `json:"bait_library_id"`
	LibraryType   *string `json:"library_type"`
	// InsertSize describes fragment positions when the aliquot represents a
	// prepared library.
	InsertSizeFrom *int `json:"insert_size_from"`
	InsertSizeTo   *int `json:"insert_size_to"`
	Suboptimal     bool `json:"suboptimal"`
	// RequestID is the customer request the aliquot was last transferred
	// under.
	RequestID *string `json:"request_id"`
}

// AliquotOverrides carries attribute overrides applied on top of a duplicated
// aliquot. Nil fields leave the copied value untouched.
type AliquotOverrides struct {
	SampleID       *string
	TagID          *string
	Tag2ID         *string
	StudyID        *string
	ProjectID      *string
	LibraryID      *string
	BaitLibraryID  *string
	LibraryType    *string
	InsertSizeFrom *int
	InsertSizeTo   *int
	RequestID      *string
}

// NormalizeTags replaces empty tag references with the sentinel. New aliquots
// pass through here before validation so the uniqueness index always has a
// concrete pair to work with.
func (a *Aliquot) NormalizeTags() {
	if a.TagID == "" {
		a.TagID = UnassignedTag
	}
	if a.Tag2ID == "" {
		a.Tag2ID = UnassignedTag
	}
}

// Tagged reports whether the given slot holds a real tag. The sentinel short
// circuits without any tag lookup; untagged aliquots are extremely common and
// must not cost a query.
func (a Aliquot) Tagged(slot TagSlot) bool {
	switch slot {
	case TagSlot2:
		return a.Tag2ID != "" && a.Tag2ID != UnassignedTag
	default:
		return a.TagID != "" && a.TagID != UnassignedTag
	}
}

// Untagged reports whether neither tag slot is populated.
func (a Aliquot) Untagged() bool {
	return !a.Tagged(TagSlot1) && !a.Tagged(TagSlot2)
}

// TagDepth returns Dual when both slots are set, Single for exactly one, and
// Untagged otherwise.
func (a Aliquot) TagDepth() TagDepth {
	switch {
	case a.Tagged(TagSlot2) && a.Tagged(TagSlot1):
		return TagDepthDual
	case a.Tagged(TagSlot1) || a.Tagged(TagSlot2):
		return TagDepthSingle
	default:
		return TagDepthUntagged
	}
}

// TagPair returns the (tag, tag2) reference pair as stored, sentinel
// included.
func (a Aliquot) TagPair() (string, string) {
	tag, tag2 := a.TagID, a.Tag2ID
	if tag == "" {
		tag = UnassignedTag
	}
	if tag2 == "" {
		tag2 = UnassignedTag
	}
	return tag, tag2
}

// Duplicate produces a new, unsaved aliquot carrying the receiver's
// attributes with identifier, receptacle reference and timestamps cleared,
// then applies the overrides. The receiver is never mutated.
func (a Aliquot) Duplicate(overrides AliquotOverrides) Aliquot {
	clone := a
	clone.Base = Base{}
	clone.ReceptacleID = ""
	clone.StudyID = cloneStringPtr(a.StudyID)
	clone.ProjectID = cloneStringPtr(a.ProjectID)
	clone.LibraryID = cloneStringPtr(a.LibraryID)
	clone.BaitLibraryID = cloneStringPtr(a.BaitLibraryID)
	clone.LibraryType = cloneStringPtr(a.LibraryType)
	clone.InsertSizeFrom = cloneIntPtr(a.InsertSizeFrom)
	clone.InsertSizeTo = cloneIntPtr(a.InsertSizeTo)
	clone.RequestID = cloneStringPtr(a.RequestID)

	if overrides.SampleID != nil {
		clone.SampleID = *overrides.SampleID
	}
	if overrides.TagID != nil {
		clone.TagID = *overrides.TagID
	}
	if overrides.Tag2ID != nil {
		clone.Tag2ID = *overrides.Tag2ID
	}
	if overrides.StudyID != nil {
		clone.StudyID = cloneStringPtr(overrides.StudyID)
	}
	if overrides.ProjectID != nil {
		clone.ProjectID = cloneStringPtr(overrides.ProjectID)
	}
	if overrides.LibraryID != nil {
		clone.LibraryID = cloneStringPtr(overrides.LibraryID)
	}
	if overrides.BaitLibraryID != nil {
		clone.BaitLibraryID = cloneStringPtr(overrides.BaitLibraryID)
	}
	if overrides.LibraryType != nil {
		clone.LibraryType = cloneStringPtr(overrides.LibraryType)
	}
	if overrides.InsertSizeFrom != nil {
		clone.InsertSizeFrom = cloneIntPtr(overrides.InsertSizeFrom)
	}
	if overrides.InsertSizeTo != nil {
		clone.InsertSizeTo = cloneIntPtr(overrides.InsertSizeTo)
	}
	if overrides.RequestID != nil {
		clone.RequestID = cloneStringPtr(overrides.RequestID)
	}
	clone.NormalizeTags()
	return clone
}

// Matches checks whether the receiver, treated as the downstream aliquot,
// is consistent with the given upstream aliquot. The check is directional.
// A tag present upstream but absent downstream is not a business mismatch:
// material cannot shed tags mid-pipeline, so that case is an error.
func (a Aliquot) Matches(upstream Aliquot) (bool, error) {
	switch {
	case a.SampleID != upstream.SampleID:
		return false, nil
	case upstream.LibraryID != nil && !equalStringPtr(a.LibraryID, upstream.LibraryID):
		return false, nil
	case upstream.BaitLibraryID != nil && !equalStringPtr(a.BaitLibraryID, upstream.BaitLibraryID):
		return false, nil
	case (!a.Tagged(TagSlot1) && upstream.Tagged(TagSlot1)) || (!a.Tagged(TagSlot2) && upstream.Tagged(TagSlot2)):
		return false, TagMismatchError{DownstreamID: a.ID, UpstreamID: upstream.ID}
	case upstream.Untagged():
		return true, nil
	default:
		tag1OK := !upstream.Tagged(TagSlot1) || a.TagID == upstream.TagID
		tag2OK := !upstream.Tagged(TagSlot2) || a.Tag2ID == upstream.Tag2ID
		return tag1OK && tag2OK, nil
	}
}

// EquivalentTo looks for exact matches only, unlike Matches which lets
// untagged pair with tagged. Identifiers, timestamps and receptacles are
// excluded from the comparison.
func (a Aliquot) EquivalentTo(other Aliquot) bool {
	return a.SampleID == other.SampleID &&
		a.TagID == other.TagID &&
		a.Tag2ID == other.Tag2ID &&
		equalStringPtr(a.LibraryID, other.LibraryID) &&
		equalStringPtr(a.BaitLibraryID, other.BaitLibraryID) &&
		equalIntPtr(a.InsertSizeFrom, other.InsertSizeFrom) &&
		equalIntPtr(a.InsertSizeTo, other.InsertSizeTo) &&
		equalStringPtr(a.LibraryType, other.LibraryType) &&
		equalStringPtr(a.ProjectID, other.ProjectID) &&
		equalStringPtr(a.StudyID, other.StudyID)
}

// TagMismatchError reports an upstream aliquot tagged on a slot where the
// downstream aliquot carries no tag. This indicates corrupted pipeline state
// rather than a legitimate mismatch, so it surfaces as an error.
type TagMismatchError struct {
	DownstreamID string
	UpstreamID   string
}

func (e TagMismatchError) Error() string {
	return fmt.Sprintf("tag missing from downstream aliquot %s (upstream %s)", e.DownstreamID, e.UpstreamID)
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
