package store

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/imamik/kubedash/internal/cluster"
)

const documentVersion = 1

// document is the serialised form shared by the file and S3 backends.
// A list keeps insertion order across restarts.
type document struct {
	Version  int                  `yaml:"version"`
	Clusters []cluster.Descriptor `yaml:"clusters"`
}

func encodeDocument(descriptors []cluster.Descriptor) ([]byte, error) {
	if descriptors == nil {
		descriptors = []cluster.Descriptor{}
	}
	data, err := yaml.Marshal(document{Version: documentVersion, Clusters: descriptors})
	if err != nil {
		return nil, fmt.Errorf("failed to encode store document: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte) ([]cluster.Descriptor, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode store document: %w", err)
	}
	if doc.Version > documentVersion {
		return nil, fmt.Errorf("unsupported store document version %d", doc.Version)
	}
	return doc.Clusters, nil
}
