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


// Package badger implements the storage interfaces on BadgerDB.
//
// All repositories share one Backend and therefore one database. Records
// are serialized with mus-go; composite keys embed tenant ids and
// big-endian timestamps so prefix scans stay within a tenant and iterate
// in chronological order (see keys.go for the full layout).
//
// The job queue leans on badger's optimistic concurrency control: claiming
// reads the job record inside a read-write transaction, so concurrent
// claimers of the same job serialize through commit-time conflict
// detection and exactly one wins.
package badger
