// Copyright 2026 qnnpack-go Authors
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

package dwconv

// PreferredCR reports the channel block width a vectorized kernel would use
// on this CPU: 8 lanes where 128-bit integer vectors are available, 1
// otherwise. Callers that test a specific kernel should use that kernel's
// block width instead.
func PreferredCR() int {
	return preferredCR()
}
