// Package harness runs decode scenarios: a CUE schema, a set of flat rows
// and the nested results (or error) they must decode to.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: blog_posts
//	description: "Posts with an author and a list of comments"
//	schema: ../schemas/blog.cue   # relative to the scenario file
//	root: Post
//	field_case: camel             # optional, with column_case
//	column_case: snake
//	rows:
//	  - { p__id: 1, p__title: first, a__id: 1, a__name: ann, c__id: 1, c__body: nice }
//	expect:
//	  results:
//	    - { id: 1, title: first, author: { id: 1, name: ann }, comments: [ { id: 1, body: nice } ] }
//	assertions:
//	  - type: result_count
//	    count: 1
//	  - type: field_equals
//	    path: 0.author.name
//	    value: ann
//
// Rows may instead be read from a JSON or YAML fixture with rows_file.
// expect.error names the expected failure kind (schema, discriminator or
// unmappable) instead of results.
//
// # Assertion Types
//
//   - result_count: the number of decoded roots
//   - field_equals: the value at a dotted path (list indexes are numbers)
//   - collection_length: the length of the list at a dotted path
//
// # Determinism
//
// Results are compared and snapshotted as canonical JSON (see rowjson), so
// a scenario produces byte-identical golden output on every run.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/blog_posts.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
