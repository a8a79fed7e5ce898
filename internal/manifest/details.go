package manifest

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const (
	// PathDetailsURL names the PathDetails attachment.
	PathDetailsURL = "keel.dev/proto/keel.PathDetails"

	// legacyPathDetailsURL is accepted for units produced by Java extractors,
	// whose details message carries the same three path lists.
	legacyPathDetailsURL = "kythe.io/proto/kythe.proto.JavaDetails"
)

// PathDetails overrides the front end's search paths for a compilation.
type PathDetails struct {
	Classpath     []string `json:"classpath,omitempty"`
	Sourcepath    []string `json:"sourcepath,omitempty"`
	Bootclasspath []string `json:"bootclasspath,omitempty"`
}

// NewPathDetail encodes d as a Detail attachment.
func NewPathDetail(d PathDetails) (Detail, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return Detail{}, fmt.Errorf("manifest: encode path details: %w", err)
	}
	return Detail{TypeURL: PathDetailsURL, Value: raw}, nil
}

// FindPathDetails returns the first PathDetails attachment of u that decodes
// cleanly. Attachments that carry the right type but fail to decode are
// logged and skipped.
func FindPathDetails(u *Unit, log *zap.Logger) (*PathDetails, bool) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, d := range u.Details {
		if d.TypeURL != PathDetailsURL && d.TypeURL != legacyPathDetailsURL {
			continue
		}
		var pd PathDetails
		if err := json.Unmarshal(d.Value, &pd); err != nil {
			log.Warn("error unpacking path details",
				zap.String("type_url", d.TypeURL), zap.Error(err))
			continue
		}
		return &pd, true
	}
	return nil, false
}
