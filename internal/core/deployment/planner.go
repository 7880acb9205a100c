package deployment

// =============================================================================
// Pipeline Stages
// =============================================================================

// Stage is the state of a deployment target as seen by the pipeline.
type Stage int

const (
	StageUncloned Stage = iota
	StageCloned
	StageBuilt
	StagePushed
	StageRunning
)

func (s Stage) String() string {
	switch s {
	case StageUncloned:
		return "uncloned"
	case StageCloned:
		return "cloned"
	case StageBuilt:
		return "built"
	case StagePushed:
		return "pushed"
	case StageRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Operation names a host-bound pipeline operation.
type Operation string

const (
	OpSetupEnv       Operation = "setup-env"
	OpBuildContainer Operation = "build-container"
	OpPushToRepo     Operation = "push-to-repo"
	OpPullRepo       Operation = "pull-repo"
	OpRunContainer   Operation = "run-container"
	OpTestContainer  Operation = "test-container"
	OpAppConfig      Operation = "app-config"
	OpReloadNginx    Operation = "reload-nginx"
)

// Operations lists the pipeline operations in pipeline order.
func Operations() []Operation {
	return []Operation{
		OpSetupEnv,
		OpBuildContainer,
		OpPushToRepo,
		OpPullRepo,
		OpRunContainer,
		OpTestContainer,
		OpAppConfig,
		OpReloadNginx,
	}
}

// OperationPlan describes what an operation does to a target.
type OperationPlan struct {
	Operation Operation

	// Valid is false for unknown operations.
	Valid bool

	// From lists the stages the operation is meant to start from.
	// Empty when the operation does not depend on the target stage.
	From []Stage

	// To is the stage reached on success. Changes is false for operations
	// that leave the target stage unchanged.
	To      Stage
	Changes bool

	// Steps is the ordered sequence of collaborator actions.
	Steps []string

	// ErrorReason is set when Valid is false.
	ErrorReason string
}

// PlanOperation returns the stage transition and step sequence of op.
//
// Example:
//
//	plan := PlanOperation(OpBuildContainer)
//	plan.From // [cloned]
//	plan.To   // built
func PlanOperation(op Operation) OperationPlan {
	switch op {
	case OpSetupEnv:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			From:      []Stage{StageUncloned, StageCloned},
			To:        StageCloned,
			Changes:   true,
			Steps: []string{
				"create and initialize the environment directory if missing",
				"clone the repository if missing",
				"git checkout <git_branch>",
				"git pull origin <git_branch>",
			},
		}

	case OpBuildContainer:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			From:      []Stage{StageCloned},
			To:        StageBuilt,
			Changes:   true,
			Steps: []string{
				"setup-env",
				"git rev-parse HEAD",
				"docker build --rm -t <service>-<branch>:<revision> <path>",
			},
		}

	case OpPushToRepo:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			From:      []Stage{StageBuilt},
			To:        StagePushed,
			Changes:   true,
			Steps: []string{
				"git rev-parse HEAD",
				"docker tag <service>-<branch>:<revision> <registry>/<service>-<branch>",
				"docker push <registry>/<service>-<branch>",
				"docker rmi <registry>/<service>-<branch>",
			},
		}

	case OpPullRepo:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			From:      []Stage{StagePushed},
			To:        StagePushed,
			Steps: []string{
				"docker pull <registry>/<service>-<branch>",
			},
		}

	case OpRunContainer:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			From:      []Stage{StagePushed},
			To:        StageRunning,
			Changes:   true,
			Steps: []string{
				"pull-repo",
				"read application config",
				"docker run -d -p :<port> <env> <registry>/<service>-<branch>:latest",
				"docker inspect <container>",
			},
		}

	case OpTestContainer:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			From:      []Stage{StageBuilt, StagePushed},
			To:        StageBuilt,
			Steps: []string{
				"git rev-parse HEAD",
				"read application config",
				"docker run -t <env> <service>-<branch>:<revision> <test entrypoint>",
			},
		}

	case OpAppConfig:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			Steps: []string{
				"read application config",
			},
		}

	case OpReloadNginx:
		return OperationPlan{
			Operation: op,
			Valid:     true,
			Steps: []string{
				"sudo /etc/init.d/nginx reload",
			},
		}

	default:
		return OperationPlan{
			Operation:   op,
			Valid:       false,
			ErrorReason: "unknown pipeline operation",
		}
	}
}
