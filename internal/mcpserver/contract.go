package mcpserver

// ConnectionRulesContract describes which node kinds may be connected.
// LLM consumers should read it before calling connect_nodes.
const ConnectionRulesContract = `# flowboard Connection Rules

A workflow is a directed graph. Edges go from a source node to a target
node. Every proposed edge is checked against these rules in order; the
first matching rule decides.

| Source   | Allowed targets                    | Refusal message |
|----------|------------------------------------|-----------------|
| API      | Function                           | API nodes can only connect to Function nodes. |
| Function | API, Function, Queue, Database     | (never refused) |
| Queue    | Function                           | Queue nodes can only connect to Function nodes. |
| Database | Function                           | Database nodes can only connect to Function nodes. |

## Handles

- API nodes have two source handles: ` + "`" + `request` + "`" + ` and ` + "`" + `response` + "`" + `.
  Pass one as ` + "`" + `source_handle` + "`" + `, or omit it.
- Other kinds have a single unnamed handle; omit ` + "`" + `source_handle` + "`" + `.

## Silent refusals

These connections are not created and carry no message on the canvas:

1. The source or target node does not exist.
2. The source handle is not one of the source kind's handles.
3. An identical edge (same source, target and handles) already exists.

## Notes

- A Function node may connect to itself; cycles are allowed.
- Deleting a node also deletes every edge touching it.
- Node kinds cannot be changed. Delete and re-add instead.
`
