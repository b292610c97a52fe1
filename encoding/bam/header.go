package bam

import (
	"github.com/grailbio/bwamem/aligner"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Program describes the @PG line of a header.
type Program struct {
	ID          string
	Name        string
	CommandLine string
	Version     string
}

// NewHeader returns a SAM header listing refs in index order, so that
// Hit.RefID indexes Header.Refs(). pg is added as the only @PG line.
func NewHeader(refs []aligner.Reference, pg Program) (*sam.Header, error) {
	samRefs := make([]*sam.Reference, len(refs))
	for i, ref := range refs {
		r, err := sam.NewReference(ref.Name, "", "", ref.Len, nil, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "reference %d (%s)", i, ref.Name)
		}
		samRefs[i] = r
	}
	h, err := sam.NewHeader(nil, samRefs)
	if err != nil {
		return nil, errors.Wrap(err, "new header")
	}
	if pg.ID != "" {
		if err := h.AddProgram(sam.NewProgram(pg.ID, pg.Name, pg.CommandLine, "", pg.Version)); err != nil {
			return nil, errors.Wrapf(err, "add program %s", pg.ID)
		}
	}
	return h, nil
}
