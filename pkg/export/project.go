package export

import (
	"html"
	"strings"

	"github.com/chazu/boxel/pkg/bundler"
	"github.com/chazu/boxel/pkg/scene"
)

// CSGLibrary is the import-map target for the CSG components used by
// boolean markup.
const CSGLibrary = "https://esm.sh/@react-three/csg@3.1.0?external=react,react-dom,three,@react-three/fiber"

// Libraries returns the extra import-map entries a scene project needs on
// top of the bundler's well-known libraries.
func Libraries() map[string]string {
	return map[string]string{"@react-three/csg": CSGLibrary}
}

// Project renders the visible objects as a small react-three-fiber project:
// an index.html template, src/main.jsx mounting a canvas, and src/Scene.jsx
// holding the exported markup. The result feeds bundler.Bundle.
func Project(objects []scene.SceneObject, title string) bundler.FileMap {
	if title == "" {
		title = "boxel scene"
	}
	body := ExportJSX(objects)

	var imports []string
	if strings.Contains(body, "<Geometry>") {
		imports = append(imports, "import { Geometry, Base, Addition, Subtraction, Intersection } from '@react-three/csg';")
	}
	if strings.Contains(body, "<Line ") {
		imports = append(imports, "import { Line } from '@react-three/drei';")
	}

	var sc strings.Builder
	for _, imp := range imports {
		sc.WriteString(imp + "\n")
	}
	if len(imports) > 0 {
		sc.WriteString("\n")
	}
	sc.WriteString("export default function Scene() {\n  return (\n    <>\n")
	for _, l := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if l != "" {
			sc.WriteString("      " + l + "\n")
		}
	}
	sc.WriteString("    </>\n  );\n}\n")

	return bundler.FileMap{
		"index.html": "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>" +
			html.EscapeString(title) + "</title>\n</head>\n<body>\n<div id=\"root\"></div>\n</body>\n</html>\n",
		"src/style.css": "html, body, #root { margin: 0; width: 100%; height: 100%; }\n",
		"src/main.jsx":  mainJSX,
		"src/Scene.jsx": sc.String(),
	}
}

const mainJSX = `import { createRoot } from 'react-dom/client';
import { Canvas } from '@react-three/fiber';
import { OrbitControls } from '@react-three/drei';
import Scene from './Scene.jsx';

createRoot(document.getElementById('root')).render(
  <Canvas camera={{ position: [5, 5, 5], fov: 50 }}>
    <ambientLight intensity={0.6} />
    <directionalLight position={[5, 10, 7]} intensity={0.8} />
    <Scene />
    <OrbitControls makeDefault />
  </Canvas>
);
`
