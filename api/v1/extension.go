package v1

import (
	"strconv"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/pkg/client"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

const TaskType = "task"

func taskURI(id string) string {
	return client.TasksPath + "/" + id
}

// NewTaskFromModel converts a models.Task to its wire representation.
func NewTaskFromModel(t models.Task) tasks.Task {
	apiTask := tasks.Task{
		ID:              t.ID,
		Type:            TaskType,
		Name:            t.Name,
		DisplayName:     t.DisplayName,
		State:           tasks.TaskState(t.State),
		ProgressPercent: t.Progress,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		UserID:          t.UserID,
		CustomerID:      t.CustomerID,
		ResourceURI:     taskURI(t.ID),
	}

	if t.Source != nil {
		apiTask.SourceResource = &tasks.ResourceRef{
			Name:        t.Source.Name,
			Type:        t.Source.Kind,
			ResourceURI: t.Source.URI,
		}
		apiTask.SourceResourceURI = t.Source.URI
	}

	if t.ParentID != "" {
		ref := &tasks.TaskRef{ID: t.ParentID, Name: t.ParentName, ResourceURI: taskURI(t.ParentID)}
		apiTask.Parent = ref
		apiTask.ParentTask = ref
	}
	if t.RootID != "" {
		apiTask.RootTask = &tasks.TaskRef{ID: t.RootID, ResourceURI: taskURI(t.RootID)}
	}

	for _, id := range t.ChildIDs {
		apiTask.ChildTasks = append(apiTask.ChildTasks, tasks.ResourceRef{Type: TaskType, ResourceURI: taskURI(id)})
	}
	for _, l := range t.Logs {
		apiTask.LogMessages = append(apiTask.LogMessages, tasks.LogMessage{Message: l.Message, TimestampAt: l.At})
	}

	if t.Error != "" || t.ErrorCode != 0 {
		apiTask.Error = &tasks.TaskError{Error: t.Error}
		if t.ErrorCode != 0 {
			apiTask.Error.ErrorCode = strconv.Itoa(t.ErrorCode)
		}
	}

	return apiTask
}

// NewResourceFromModel converts a models.Resource to an API Resource.
func NewResourceFromModel(r models.Resource) Resource {
	return Resource{
		Id:          r.ID,
		Name:        r.Name,
		Type:        r.Kind.Type(),
		ResourceUri: r.Kind.URI(r.ID),
		State:       string(r.State),
		CustomerId:  r.CustomerID,
		Generation:  r.Generation,
		Attributes:  r.Attributes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func NewProtectionJobFromModel(j models.ProtectionJob) ProtectionJob {
	return ProtectionJob{
		Id:        j.ID,
		PolicyId:  j.PolicyID,
		AssetUri:  j.AssetURI,
		AssetName: j.AssetName,
		Schedule:  j.Schedule,
		NextRunAt: j.NextRunAt,
		Runs:      j.Runs,
	}
}
