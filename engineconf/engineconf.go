// Package engineconf holds process-wide engine configuration.
//
// This mirrors gviegas-neo3's engine.Config/DefaultConfig/Configure: a
// small value type with documented defaults, replaced wholesale by a
// single Configure call at startup.
//
// No other package in this module reads Current(): frame.Config,
// transfer.StagingPoolConfig and shaderrefl.PoolRingConfig are filled in
// by the caller, which may copy values from here.
package engineconf

const (
	// MaxFramesInFlight is an upper bound on frames in flight for callers
	// of this package; frame.New only checks that its FramesInFlight is at
	// least 1.
	MaxFramesInFlight = 3

	// MaxLights is the maximum number of lights packed into a LightUBO.
	MaxLights = 16

	// MinStagingBuffer is the minimum size, in bytes, of a pooled staging
	// buffer.
	MinStagingBuffer = 16384

	dflMaxPooledStaging  = 16
	dflMaxStagingBuffer  = 64 << 20
	dflMaxDescriptorSets = 1024
)

// Config configures engine-wide defaults.
type Config struct {
	// FramesInFlight is the number of frames the frame orchestrator
	// allocates per-frame GPU resources for.
	//
	// Default is 2.
	FramesInFlight int

	// MaxLights is the maximum number of lights considered when building
	// a LightUBO.
	//
	// Default is MaxLights.
	MaxLights int

	// StagingPoolEnabled controls whether the transfer engine pools
	// staging buffers across uploads.
	//
	// Default is true.
	StagingPoolEnabled bool

	// MaxPooledStagingBuffers is the maximum number of staging buffers
	// kept alive per thread.
	//
	// Default is 16.
	MaxPooledStagingBuffers int

	// MinStagingBufferSize is the minimum size of a newly-allocated
	// staging buffer.
	//
	// Default is MinStagingBuffer (16384 bytes).
	MinStagingBufferSize int64

	// MaxStagingBufferSize caps the size of a single staging buffer.
	//
	// Default is 64 MiB.
	MaxStagingBufferSize int64

	// MaxDescriptorSetsPerPool is the number of sets a single descriptor
	// pool is sized for before the allocator rotates to another pool.
	//
	// Default is 1024.
	MaxDescriptorSetsPerPool int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FramesInFlight:           2,
		MaxLights:                MaxLights,
		StagingPoolEnabled:       true,
		MaxPooledStagingBuffers:  dflMaxPooledStaging,
		MinStagingBufferSize:     MinStagingBuffer,
		MaxStagingBufferSize:     dflMaxStagingBuffer,
		MaxDescriptorSetsPerPool: dflMaxDescriptorSets,
	}
}

var current = DefaultConfig()

// Configure replaces the process-wide configuration with cfg.
func Configure(cfg Config) { current = cfg }

// Current returns the active configuration.
func Current() Config { return current }
