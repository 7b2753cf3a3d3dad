package classpath

// Progress observes a scan. Implementations can display progress bars, log
// messages, or remain silent. Callbacks run on the scanning goroutine.
type Progress interface {
	// OnElementStart is called before a classpath element is walked.
	OnElementStart(element Element)

	// OnArtifact is called before an artifact is handed to the consumer.
	OnArtifact(artifact Artifact)

	// OnElementDone is called after an element was walked without error.
	OnElementDone(element Element)
}

// NoOpProgress is a Progress that does nothing.
type NoOpProgress struct{}

func (NoOpProgress) OnElementStart(Element) {}
func (NoOpProgress) OnArtifact(Artifact)    {}
func (NoOpProgress) OnElementDone(Element)  {}
