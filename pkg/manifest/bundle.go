package manifest

// Known definition kinds. Any other kind is preserved opaquely.
const (
	KindWorkflow         = "Workflow"
	KindTransitionPolicy = "TransitionPolicy"
	KindEntityType       = "EntityType"
	KindProjectType      = "ProjectType"
	KindArtifactType     = "ArtifactType"
	KindTaskType         = "TaskType"
	KindCommentType      = "CommentType"
)

// EntityTypeKinds lists the kinds parsed into EntityTypeDef.
var EntityTypeKinds = []string{
	KindEntityType,
	KindProjectType,
	KindArtifactType,
	KindTaskType,
	KindCommentType,
}

// IsEntityTypeKind reports whether kind is parsed into an EntityTypeDef.
func IsEntityTypeKind(kind string) bool {
	for _, k := range EntityTypeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Bundle is an immutable manifest document. Its content is identified by the
// version id it is stored under; a new edit always yields a new version.
type Bundle struct {
	Defs []Def `json:"defs" yaml:"defs"`
}

// Def is one definition of a Bundle.
type Def struct {
	Kind  string         `json:"kind" yaml:"kind"`
	ID    string         `json:"id" yaml:"id"`
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
}

// Key addresses a Def inside an Ast.
type Key struct {
	Kind string
	ID   string
}
