package shard

// Locality is the narrow interface a placement layer satisfies to
// bind a shard to a geographic region. No placement algorithm is
// implemented here — only the contract the core consumes from it.
type Locality interface {
	// Region reports this shard's assigned region, e.g. "us-east".
	Region() string
	// BlobEndpointHint reports the preferred blob-store endpoint for
	// this shard's locality, e.g. a regional S3 endpoint.
	BlobEndpointHint() string
}

// StaticLocality is a fixed Locality, useful for single-region
// deployments and tests.
type StaticLocality struct {
	region       string
	endpointHint string
}

func NewStaticLocality(region, endpointHint string) StaticLocality {
	return StaticLocality{region: region, endpointHint: endpointHint}
}

func (l StaticLocality) Region() string { return l.region }

func (l StaticLocality) BlobEndpointHint() string { return l.endpointHint }
