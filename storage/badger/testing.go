// Copyright 2026 KnowStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

// Repositories bundles every repository sharing one backend.
type Repositories struct {
	Backend   *Backend
	Documents *DocumentRepository
	Chunks    *ChunkRepository
	Jobs      *JobRepository
	Messages  *MessageRepository
}

// Close closes the shared backend.
func (r *Repositories) Close() error {
	return r.Backend.Close()
}

// OpenRepositories opens a backend at the given path and wires every
// repository onto it.
func OpenRepositories(filePath string) (*Repositories, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend), nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the returned bundle when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend), nil
}

func newRepositories(backend *Backend) *Repositories {
	return &Repositories{
		Backend:   backend,
		Documents: NewDocumentRepository(backend),
		Chunks:    NewChunkRepository(backend),
		Jobs:      NewJobRepository(backend),
		Messages:  NewMessageRepository(backend),
	}
}
