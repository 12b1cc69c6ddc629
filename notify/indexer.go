package notify

import (
	"github.com/c360/livesearch/protocol"
	"github.com/c360/livesearch/search"
)

// Indexer applies document changes to the in-memory engine and publishes
// the matching update events, so local mutations reach subscribers the
// same way external ones do.
type Indexer struct {
	engine   *search.MemoryEngine
	notifier *Notifier
}

// NewIndexer couples an engine with a notifier.
func NewIndexer(engine *search.MemoryEngine, notifier *Notifier) *Indexer {
	return &Indexer{engine: engine, notifier: notifier}
}

// Upsert indexes a document and emits created or updated depending on
// whether the id was already known.
func (ix *Indexer) Upsert(doc search.Document) error {
	_, existed := ix.engine.Get(doc.ID)
	if err := ix.engine.Index(doc); err != nil {
		return err
	}

	kind := protocol.EventCreated
	if existed {
		kind = protocol.EventUpdated
	}
	return ix.notifier.OnChange(protocol.DocumentUpdateEvent{
		Kind:       kind,
		DocumentID: doc.ID,
		Title:      doc.Title,
		Category:   doc.Category,
		Repository: doc.Repository,
		Tags:       doc.Tags,
	})
}

// Delete removes a document and emits deleted. Removing an id that was
// never indexed is a no-op and emits nothing.
func (ix *Indexer) Delete(id string) error {
	doc, ok := ix.engine.Get(id)
	if !ok {
		return nil
	}
	ix.engine.Remove(id)

	return ix.notifier.OnChange(protocol.DocumentUpdateEvent{
		Kind:       protocol.EventDeleted,
		DocumentID: doc.ID,
		Title:      doc.Title,
		Category:   doc.Category,
		Repository: doc.Repository,
		Tags:       doc.Tags,
	})
}
