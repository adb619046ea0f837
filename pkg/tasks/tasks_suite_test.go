package tasks_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/pkg/client"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

func TestTasks(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Tasks Suite")
}

// fakeBackend serves scripted task documents. Each GET of a task pops the
// next scripted document; the last one repeats.
type fakeBackend struct {
	mu          sync.Mutex
	scripts     map[string][]tasks.Task
	failures    map[string][]int
	list        func(q url.Values) tasks.TaskList
	listQueries []url.Values
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		scripts:  map[string][]tasks.Task{},
		failures: map[string][]int{},
		list: func(url.Values) tasks.TaskList {
			return tasks.TaskList{}
		},
	}
}

func (f *fakeBackend) script(id string, docs ...tasks.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range docs {
		docs[i].ID = id
	}
	f.scripts[id] = docs
}

func (f *fakeBackend) queries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.listQueries...)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == client.TasksPath {
		f.mu.Lock()
		f.listQueries = append(f.listQueries, r.URL.Query())
		fn := f.list
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(fn(r.URL.Query()))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, client.TasksPath+"/")

	f.mu.Lock()
	if codes := f.failures[id]; len(codes) > 0 {
		f.failures[id] = codes[1:]
		f.mu.Unlock()
		w.WriteHeader(codes[0])
		return
	}
	script, ok := f.scripts[id]
	if !ok || len(script) == 0 {
		f.mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
		return
	}
	doc := script[0]
	if len(script) > 1 {
		f.scripts[id] = script[1:]
	}
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(doc)
}

// firstPage serves items on offset 0 only, like a backend with a single page of results.
func firstPage(items ...tasks.Task) func(url.Values) tasks.TaskList {
	return func(q url.Values) tasks.TaskList {
		if off := q.Get("offset"); off != "" && off != "0" {
			return tasks.TaskList{}
		}
		return tasks.TaskList{Items: items, Total: len(items)}
	}
}
