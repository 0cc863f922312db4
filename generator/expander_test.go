package generator

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsekura/vulkan-bindings/parser"
)

func TestExpandLoads(t *testing.T) {
	out, err := expandLoads([]loadEntry{
		{Field: "CreateInstance", Symbol: "vkCreateInstance"},
		{Field: "DestroyInstance", Symbol: "vkDestroyInstance"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"\tregister(&t.CreateInstance, addr(parent, \"vkCreateInstance\"))\n"+
			"\tregister(&t.DestroyInstance, addr(parent, \"vkDestroyInstance\"))\n",
		out)
}

func TestLoadEntriesKeepCanonicalSymbols(t *testing.T) {
	f, err := os.Open("../testdata/minimal_registry.xml")
	require.NoError(t, err)
	defer f.Close()
	reg, err := parser.Parse(f, parser.DefaultOptions())
	require.NoError(t, err)

	fg := reg.Feature("VK_KHR_rect_info2")
	require.NotNil(t, fg)

	entries := loadEntriesFor(fg, reg, func(string) bool { return true })
	require.Len(t, entries, 2)

	// An aliased command loads under its own exported symbol, not the
	// alias target's.
	assert.Equal(t, loadEntry{Field: "GetRectInfo2KHR", Symbol: "vkGetRectInfo2KHR"}, entries[0])
	assert.Equal(t, loadEntry{Field: "GetRectInfo", Symbol: "vkGetRectInfo"}, entries[1])
}

func TestLoadEntriesHonorFilter(t *testing.T) {
	f, err := os.Open("../testdata/minimal_registry.xml")
	require.NoError(t, err)
	defer f.Close()
	reg, err := parser.Parse(f, parser.DefaultOptions())
	require.NoError(t, err)

	fg := reg.Feature("VK_VERSION_1_0")
	require.NotNil(t, fg)

	entries := loadEntriesFor(fg, reg, func(name string) bool { return name != "vkDestroyInstance" })
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Symbol
	}
	assert.Equal(t, []string{"vkCreateInstance", "vkGetRectInfo"}, names)
}

func TestDispatchClassification(t *testing.T) {
	cmd := func(name, firstParam string) *parser.Command {
		c := &parser.Command{Name: name}
		if firstParam != "" {
			c.Params = []parser.Param{{Name: "p0", Type: firstParam}}
		}
		return c
	}

	assert.Equal(t, dispatchGlobal, classify(cmd("vkCreateInstance", "")))
	assert.Equal(t, dispatchGlobal, classify(cmd("vkEnumerateInstanceVersion", "uint32_t")))
	assert.Equal(t, dispatchInstance, classify(cmd("vkDestroyInstance", "VkInstance")))
	assert.Equal(t, dispatchInstance, classify(cmd("vkGetPhysicalDeviceFeatures", "VkPhysicalDevice")))
	assert.Equal(t, dispatchDevice, classify(cmd("vkDestroyDevice", "VkDevice")))
	assert.Equal(t, dispatchDevice, classify(cmd("vkQueueSubmit", "VkQueue")))
	assert.Equal(t, dispatchDevice, classify(cmd("vkCmdDraw", "VkCommandBuffer")))
	// Resolved from the instance even though its first parameter is a device.
	assert.Equal(t, dispatchInstance, classify(cmd("vkGetDeviceProcAddr", "VkDevice")))
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "Instance", publicTypeName("VkInstance"))
	assert.Equal(t, "FnVoidFunction", publicTypeName("PFN_vkVoidFunction"))
	assert.Equal(t, "CreateInstance", publicCommandName("vkCreateInstance"))
	assert.Equal(t, "FnCreateInstance", fnTypeName("vkCreateInstance"))
	assert.Equal(t, "MAX_EXTENSION_NAME_SIZE", publicConstName("VK_MAX_EXTENSION_NAME_SIZE"))
	assert.Equal(t, "SType", exportedField("sType"))
	assert.Equal(t, "Version10Commands", tableTypeName("VK_VERSION_1_0"))
	assert.Equal(t, "KhrSwapchainCommands", tableTypeName("VK_KHR_swapchain"))
	assert.Equal(t, "ExtDebugUtilsCommands", tableTypeName("VK_EXT_debug_utils"))
}
