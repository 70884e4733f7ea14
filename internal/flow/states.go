package flow

import (
	"github.com/m3rciful/leadbot/internal/catalog"
	"github.com/m3rciful/leadbot/internal/lead"
)

// State names a step of the lead conversation. Idle has no state and no
// stored conversation.
type State string

const (
	StateChoosingService State = "lead.choosing_service"

	StateNeuroStep1  State = "lead.neuro.step1"
	StateNeuroStep2  State = "lead.neuro.step2"
	StateNeuroWishes State = "lead.neuro.wishes"

	StateRestType  State = "lead.rest.type"
	StateRestTask  State = "lead.rest.task"
	StateRestFiles State = "lead.rest.files"

	StateModelIntro       State = "lead.model3d.intro"
	StateModelWaitFile    State = "lead.model3d.wait_file"
	StateModelDescription State = "lead.model3d.description"

	StateContentTask State = "lead.content.task"
	StateVideoTask   State = "lead.video.task"
	StateTask        State = "lead.task"

	StateDeadline       State = "lead.deadline"
	StateDeadlineCustom State = "lead.deadline.custom"

	StateContactChoice State = "lead.contact.choice"
	StateContactPhone  State = "lead.contact.phone"
	StateContactOther  State = "lead.contact.other"

	StateConfirm    State = "lead.confirm"
	StateSubmitting State = "lead.submitting"
)

// Conversation is the stored per-user session.
type Conversation struct {
	State State      `json:"state"`
	Draft lead.Draft `json:"draft"`
}

// Clone returns a deep copy.
func (c Conversation) Clone() Conversation {
	return Conversation{State: c.State, Draft: c.Draft.Clone()}
}

// firstStep is the entry state of a branch.
func firstStep(b catalog.Branch) State {
	switch b {
	case catalog.BranchNeuro:
		return StateNeuroStep1
	case catalog.BranchRestoration:
		return StateRestType
	case catalog.BranchModel3D:
		return StateModelIntro
	case catalog.BranchContent:
		return StateContentTask
	case catalog.BranchVideoGreeting:
		return StateVideoTask
	default:
		return StateTask
	}
}

// lastInputStep is where back from the deadline step returns to.
func lastInputStep(d lead.Draft) State {
	switch d.Branch {
	case catalog.BranchNeuro:
		return StateNeuroWishes
	case catalog.BranchRestoration:
		return StateRestTask
	case catalog.BranchModel3D:
		if d.Model3D != nil && d.Model3D.FromCaption {
			return StateModelWaitFile
		}
		return StateModelDescription
	case catalog.BranchContent:
		return StateContentTask
	case catalog.BranchVideoGreeting:
		return StateVideoTask
	default:
		return StateTask
	}
}
