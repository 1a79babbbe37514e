package debugui

import "github.com/plus3/objectlab/scene"

type ObjectBrowserWindow struct {
	cache          *ObjectBrowserCache
	selected       scene.ObjectID
	filterText     string
	maxRowsPerPage int
	currentPage    int
}

type ObjectInspectorWindow struct {
	selected scene.ObjectID
	// edit buffers, reloaded whenever the selection changes
	color       string
	scale       float32
	opacity     float32
	restitution float32
	friction    float32
	kick        float32
}

type ContactTableWindow struct {
	cache *ContactTableCache
}

type PerformanceStatsWindow struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}
