package upstream

import "net/http"

// Endpoint describes one upstream API route the gateway can forward to.
// Path may contain a single %s placeholder for a path parameter.
type Endpoint struct {
	Name     string // stable name recorded in the usage log
	Method   string
	Path     string
	HasParam bool
}

var (
	ListModels = Endpoint{Name: "models.list", Method: http.MethodGet, Path: "/models"}
	GetModel   = Endpoint{Name: "models.get", Method: http.MethodGet, Path: "/models/%s", HasParam: true}

	ChatCompletions = Endpoint{Name: "chat.completions", Method: http.MethodPost, Path: "/chat/completions"}
	CreateImage     = Endpoint{Name: "images.generations", Method: http.MethodPost, Path: "/images/generations"}
	Embeddings      = Endpoint{Name: "embeddings", Method: http.MethodPost, Path: "/embeddings"}

	CreateFineTuning      = Endpoint{Name: "fine_tuning.create", Method: http.MethodPost, Path: "/fine_tuning/jobs"}
	ListFineTuning        = Endpoint{Name: "fine_tuning.list", Method: http.MethodGet, Path: "/fine_tuning/jobs"}
	GetFineTuning         = Endpoint{Name: "fine_tuning.get", Method: http.MethodGet, Path: "/fine_tuning/jobs/%s", HasParam: true}
	CancelFineTuning      = Endpoint{Name: "fine_tuning.cancel", Method: http.MethodPost, Path: "/fine_tuning/jobs/%s/cancel", HasParam: true}
	FineTuningEvents      = Endpoint{Name: "fine_tuning.events", Method: http.MethodGet, Path: "/fine_tuning/jobs/%s/events", HasParam: true}
	FineTuningCheckpoints = Endpoint{Name: "fine_tuning.checkpoints", Method: http.MethodGet, Path: "/fine_tuning/jobs/%s/checkpoints", HasParam: true}

	CreateBatch = Endpoint{Name: "batches.create", Method: http.MethodPost, Path: "/batches"}
	ListBatches = Endpoint{Name: "batches.list", Method: http.MethodGet, Path: "/batches"}
	GetBatch    = Endpoint{Name: "batches.get", Method: http.MethodGet, Path: "/batches/%s", HasParam: true}
	CancelBatch = Endpoint{Name: "batches.cancel", Method: http.MethodPost, Path: "/batches/%s/cancel", HasParam: true}
)

// restrictedModels are the chat models gated behind the restricted-models
// capability flag.
var restrictedModels = map[string]struct{}{
	"gpt-4-turbo-preview": {},
	"gpt-4o":              {},
	"gpt-4-turbo":         {},
	"gpt-4":               {},
	"gpt-3.5-turbo":       {},
	"gpt-4-1106-preview":  {},
	"gpt-4-0613":          {},
	"gpt-4o-2024-05-13":   {},
}

// IsRestrictedModel reports whether the named model requires the
// restricted-models capability.
func IsRestrictedModel(name string) bool {
	_, ok := restrictedModels[name]
	return ok
}
