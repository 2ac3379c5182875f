package client

import (
	"context"

	"github.com/arloliu/go-asc/sample"
)

// PuckInfo is one dewar slot of the inventory.
type PuckInfo struct {
	Puck sample.Position
	// Datamatrix is the code scanned on the puck, empty if none was read.
	Datamatrix string
	// Present reports whether the puck detection sees a puck in the slot.
	Present bool
}

// Pucks returns every puck slot of the layout in id order, joining the datamatrix
// table read from the controller with the presence of the latest snapshot.
func (c *Client) Pucks(ctx context.Context) ([]PuckInfo, error) {
	s, err := c.states.Require()
	if err != nil {
		return nil, err
	}
	codes, err := c.barcodes.Table(ctx)
	if err != nil {
		return nil, err
	}

	slots := c.cfg.layout.Pucks()
	pucks := make([]PuckInfo, 0, len(slots))
	for _, puck := range slots {
		pucks = append(pucks, PuckInfo{
			Puck:       puck,
			Datamatrix: codes[puck],
			Present:    s.Occupied(puck),
		})
	}

	return pucks, nil
}

// LoadedPucks returns the pucks present in the dewar, with their datamatrix codes.
func (c *Client) LoadedPucks(ctx context.Context) ([]PuckInfo, error) {
	pucks, err := c.Pucks(ctx)
	if err != nil {
		return nil, err
	}

	loaded := pucks[:0]
	for _, p := range pucks {
		if p.Present {
			loaded = append(loaded, p)
		}
	}

	return loaded, nil
}
