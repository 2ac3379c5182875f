package status

import (
	"strings"

	"github.com/arloliu/go-asc/protocol"
	"github.com/arloliu/go-asc/sample"
)

// DecodeSampleData extracts the datamatrix code scanned for each puck from a
// "sampledata" reply. Pucks without a code are left out.
func DecodeSampleData(raw []byte, layout sample.Layout) (map[sample.Position]string, error) {
	values, err := protocol.SplitStatus(protocol.QuerySampleData, raw)
	if err != nil {
		return nil, err
	}

	codes := make(map[sample.Position]string)
	for _, puck := range layout.Pucks() {
		idx := sampleDataOffset + puck.ID() - 1
		if idx >= len(values) {
			break
		}

		code := strings.TrimSpace(values[idx])
		if isEmpty(code) || code == "0" {
			continue
		}
		codes[puck] = code
	}

	return codes, nil
}
