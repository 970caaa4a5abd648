package plugin

import (
	"database/sql"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/service"
	"github.com/mrctran/mnemo/internal/store"
	"go.uber.org/zap"
)

// Options tunes the wired services. Zero values fall back to the same
// defaults the config package documents.
type Options struct {
	CaptureEnabled   bool
	MinConfidence    float64
	MaxContextTokens int
	MaxSlots         int
}

// App wires the stores and services behind the hook and tool surface.
// One App serves one host process.
type App struct {
	Slots    *store.SlotStore
	Graph    *store.GraphStore
	Memories *service.MemoryService
	Capture  *service.AutoCapture
	Recall   *service.AutoRecall
	Tools    *Registry

	captureEnabled bool
	logger         *zap.Logger
}

func NewApp(db *sql.DB, index domain.VectorIndex, embedder domain.EmbeddingClient, extractor domain.ExtractorClient, opts Options, logger *zap.Logger) *App {
	slots := store.NewSlotStore(db)
	graph := store.NewGraphStore(db)
	memories := service.NewMemoryService(index, embedder, logger)

	a := &App{
		Slots:    slots,
		Graph:    graph,
		Memories: memories,
		Capture: service.NewAutoCapture(slots, memories, extractor,
			service.WindowConfig{MaxConversationTokens: opts.MaxContextTokens}, opts.MinConfidence, logger),
		Recall:         service.NewAutoRecall(slots, graph, memories, opts.MaxSlots, logger),
		Tools:          NewRegistry(logger),
		captureEnabled: opts.CaptureEnabled,
		logger:         logger,
	}
	a.registerTools()
	return a
}

func (a *App) registerTools() {
	for _, t := range []Tool{
		{
			Name:        "memory_slot_get",
			Description: "Read one slot by key, or list slots, from the session's scopes.",
			Handler:     a.toolSlotGet,
		},
		{
			Name:        "memory_slot_set",
			Description: "Write a slot value into the private, team, or public scope.",
			Handler:     a.toolSlotSet,
		},
		{
			Name:        "memory_slot_list",
			Description: "List slots filtered by category or key prefix.",
			Handler:     a.toolSlotList,
		},
		{
			Name:        "memory_slot_delete",
			Description: "Delete a slot from the session's private scope.",
			Handler:     a.toolSlotDelete,
		},
		{
			Name:        "memory_graph_entity_get",
			Description: "Read a graph entity by id, or list entities by type and name.",
			Handler:     a.toolEntityGet,
		},
		{
			Name:        "memory_graph_entity_set",
			Description: "Create or update a graph entity.",
			Handler:     a.toolEntitySet,
		},
		{
			Name:        "memory_graph_rel_add",
			Description: "Link two entities with a typed, weighted relationship.",
			Handler:     a.toolRelAdd,
		},
		{
			Name:        "memory_graph_rel_remove",
			Description: "Remove a relationship by id or by its (source, target, type) triple.",
			Handler:     a.toolRelRemove,
		},
		{
			Name:        "memory_graph_search",
			Description: "Traverse the graph outward from an entity, up to three hops.",
			Handler:     a.toolGraphSearch,
		},
		{
			Name:        "memory_search",
			Description: "Semantic search over stored memories.",
			Handler:     a.toolMemorySearch,
		},
		{
			Name:        "memory_store",
			Description: "Store a text memory, deduplicating near-identical entries.",
			Handler:     a.toolMemoryStore,
		},
		{
			Name:        "memory_auto_capture",
			Description: "Run the capture pipeline over a provided text.",
			Handler:     a.toolAutoCapture,
		},
	} {
		a.Tools.Register(t)
	}
}
