package decode

import (
	"fmt"

	"github.com/Faultbox/midgard-gltf/pkg/task"
)

// Foreground phases hand decoded records to the host on the primary
// goroutine. A host error aborts the import.

func (s *Stages) createTextures(p task.Primary, report task.Progress) error {
	textures := s.Textures.Get()
	step := progress(report, len(textures))
	for i, tex := range textures {
		if tex != nil {
			if err := s.c.Host.CreateTexture(p, tex); err != nil {
				return fmt.Errorf("creating texture %d: %w", i, err)
			}
		}
		step(i)
	}
	return nil
}

func (s *Stages) createMaterials(p task.Primary, report task.Progress) error {
	materials := s.Materials.Get()
	step := progress(report, len(materials))
	for i, mat := range materials {
		if mat != nil {
			if err := s.c.Host.CreateMaterial(p, mat); err != nil {
				return fmt.Errorf("creating material %d: %w", i, err)
			}
		}
		step(i)
	}
	return nil
}

func (s *Stages) createMeshes(p task.Primary, report task.Progress) error {
	meshes := s.Meshes.Get()
	step := progress(report, len(meshes))
	for i, mesh := range meshes {
		if mesh != nil {
			if err := s.c.Host.CreateMesh(p, mesh); err != nil {
				return fmt.Errorf("creating mesh %d: %w", i, err)
			}
		}
		step(i)
	}
	return nil
}
