package task_test

import (
	"testing"

	"github.com/rpggio/evtrack/internal/domain/task"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) (*task.Tree, map[string]task.NodeID) {
	t.Helper()
	tree := task.NewTree("list")
	ids := map[string]task.NodeID{}
	add := func(parent task.NodeID, name string) task.NodeID {
		id, err := tree.AddChild(parent, name)
		require.NoError(t, err)
		return id
	}
	ids["Project"] = add(tree.Root(), "Project")
	ids["Design"] = add(ids["Project"], "Design")
	ids["Code"] = add(ids["Project"], "Code")
	ids["Test"] = add(ids["Project"], "Test")
	ids["Unit"] = add(ids["Test"], "Unit")
	return tree, ids
}

func TestTree_FullNameAndFind(t *testing.T) {
	tree, ids := buildTree(t)

	require.Equal(t, "", tree.FullName(tree.Root()))
	require.Equal(t, "/Project/Test/Unit", tree.FullName(ids["Unit"]))
	require.Equal(t, ids["Code"], tree.Find("/Project/Code"))
	require.Equal(t, ids["Code"], tree.Find("Project/Code"))

	// deeper paths are claimed by the closest ancestor
	require.Equal(t, ids["Code"], tree.Find("/Project/Code/Review"))
	require.Equal(t, task.NoNode, tree.Find("/Other"))
	require.Equal(t, task.NoNode, tree.Find("/ProjectX/Code"))
	require.Equal(t, task.NoNode, tree.Find(""))
}

func TestTree_AddChildValidation(t *testing.T) {
	tree := task.NewTree("list")
	_, err := tree.AddChild(tree.Root(), "  ")
	require.ErrorIs(t, err, task.ErrInvalidInput)

	_, err = tree.AddChild(42, "x")
	require.ErrorIs(t, err, task.ErrNodeNotFound)
}

func TestTree_Orders(t *testing.T) {
	tree, ids := buildTree(t)

	pre := tree.PreOrder(tree.Root())
	require.Equal(t, []task.NodeID{tree.Root(), ids["Project"], ids["Design"], ids["Code"], ids["Test"], ids["Unit"]}, pre)

	post := tree.PostOrder(tree.Root())
	require.Equal(t, tree.Root(), post[len(post)-1])
	require.Equal(t, ids["Design"], post[0])
}

func TestTree_ValidateDetectsCycle(t *testing.T) {
	tree, ids := buildTree(t)
	require.NoError(t, tree.Validate())

	tree.SetChildren(ids["Unit"], []task.NodeID{ids["Project"]})
	require.ErrorIs(t, tree.Validate(), task.ErrCycle)
}

func TestTree_GraftAndClone(t *testing.T) {
	src, ids := buildTree(t)
	src.Node(ids["Code"]).TopDownPlanTime = 90

	dst := task.NewTree("rollup")
	root, err := dst.Graft(dst.Root(), src)
	require.NoError(t, err)
	require.Equal(t, "list", dst.Node(root).Name)
	require.Equal(t, src.Len()+1, dst.Len())
	require.Equal(t, root+ids["Code"], dst.Find("/list/Project/Code"))
	require.Equal(t, 90.0, dst.Node(root+ids["Code"]).TopDownPlanTime)
	require.NoError(t, dst.Validate())

	clone := src.Clone()
	clone.Node(ids["Code"]).TopDownPlanTime = 5
	require.Equal(t, 90.0, src.Node(ids["Code"]).TopDownPlanTime)
}
