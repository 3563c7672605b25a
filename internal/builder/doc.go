/*
Package builder turns a pipeline into a quantum graph.

Construction is a fail-fast sequence over one MakeGraph call:

 1. Task Resolution: every task definition without a loaded class is resolved
    through the task loader. The caller's pipeline is never modified; resolved
    definitions are copies.

 2. Dataset Type Collection: each task class reports its input, output,
    init-input and init-output dataset types for the task's configuration.
    The pipeline-wide sets are then reduced: a type produced by any task is
    not an external input, and the same holds for init types. The first
    declaration of a name is the canonical one.

 3. Dependency Validation: tasks are linked by the dataset types they
    exchange, using the generic `dag` package. A cycle aborts the build.

 4. Selection: the user query is compiled into a predicate and checked
    against the dimension universe. Malformed queries fail here, before
    the catalog is contacted.

 5. Init Datasets: each external init-input is searched for in the origin's
    input collections in priority order; init-outputs become fresh refs.

 6. Row Materialization: one catalog join over every external input and
    every output type is run and buffered.

 7. Quantum Assembly: for each task, rows are grouped by the projection of
    their data ID onto the link columns of the task's quantum dimensions.
    Refs are de-duplicated per group, the output-existence policy is applied
    and one quantum is emitted per surviving group.

Nothing in this package writes to the catalog, so a failed build needs no
rollback and independent builds may run concurrently.
*/
package builder
